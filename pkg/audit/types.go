package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/subscription"
)

// Record is a single status transition entry.
type Record struct {
	ID        uuid.UUID           `json:"id"`
	RunID     string              `json:"run_id,omitempty"`
	AccountID uuid.UUID           `json:"account_id"`
	OldStatus subscription.Status `json:"old_status"`
	NewStatus subscription.Status `json:"new_status"`
	Reason    string              `json:"reason,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// Validate checks if the record has all required fields
func (r *Record) Validate() error {
	if r.AccountID == uuid.Nil {
		return fmt.Errorf("%w: account id is required", ErrRecordValidation)
	}
	if !r.OldStatus.Valid() || !r.NewStatus.Valid() {
		return fmt.Errorf("%w: invalid status pair %q -> %q", ErrRecordValidation, r.OldStatus, r.NewStatus)
	}
	if r.OldStatus == r.NewStatus {
		return fmt.Errorf("%w: status unchanged", ErrRecordValidation)
	}
	return nil
}

// RecordOption applies configuration to a Record during creation.
type RecordOption func(*Record)

// WithReason sets a human readable reason for the transition.
func WithReason(reason string) RecordOption {
	return func(r *Record) {
		r.Reason = reason
	}
}

// WithRunID tags the record with the job run that produced it.
func WithRunID(runID string) RecordOption {
	return func(r *Record) {
		r.RunID = runID
	}
}

// Criteria filters records returned by Storage.Query.
type Criteria struct {
	AccountID uuid.UUID
	RunID     string
	Limit     int
}
