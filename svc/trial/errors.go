package trial

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrMissingTrialEndDate  = errors.New("trial end date is not set")
	ErrInvalidGracePeriod   = errors.New("grace period must not be negative")
	ErrRunFailed            = errors.New("trial lifecycle run failed")
	ErrLedgerUnavailable    = errors.New("notification ledger unavailable")
	ErrInvalidLedgerBackend = errors.New("unknown notification ledger backend")
)

// Stage names the step of per-account processing that failed.
type Stage string

const (
	StageResolve     Stage = "resolve"
	StageTransition  Stage = "transition"
	StageStatusWrite Stage = "status_write"
	StageLedger      Stage = "ledger"
	StageNotify      Stage = "notify"
)

// AccountError is a per-account failure collected during a run.
type AccountError struct {
	AccountID uuid.UUID
	Stage     Stage
	Template  string
	Err       error
}

func (e *AccountError) Error() string {
	if e.Template != "" {
		return fmt.Sprintf("account %s: %s (%s): %v", e.AccountID, e.Stage, e.Template, e.Err)
	}
	return fmt.Sprintf("account %s: %s: %v", e.AccountID, e.Stage, e.Err)
}

func (e *AccountError) Unwrap() error {
	return e.Err
}

func (e *AccountError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		AccountID uuid.UUID `json:"account_id"`
		Stage     Stage     `json:"stage"`
		Template  string    `json:"template,omitempty"`
		Error     string    `json:"error"`
	}{e.AccountID, e.Stage, e.Template, e.Err.Error()})
}
