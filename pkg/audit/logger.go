package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/trialcycle/pkg/subscription"
)

// contextExtractor extracts string values from context.
// It returns (value, found) where found indicates if extraction succeeded.
type contextExtractor func(context.Context) (string, bool)

// Logger appends transition records to storage.
type Logger struct {
	storage        Storage
	runIDExtractor contextExtractor
	now            func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithRunIDExtractor tags records with a run id found in the context.
func WithRunIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) {
		l.runIDExtractor = fn
	}
}

// WithClock overrides the record timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		l.now = now
	}
}

// NewLogger creates a new audit logger
func NewLogger(storage Storage, opts ...Option) *Logger {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}

	l := &Logger{
		storage: storage,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Record appends a transition from one status to another.
func (l *Logger) Record(ctx context.Context, accountID uuid.UUID, from, to subscription.Status, opts ...RecordOption) error {
	rec := Record{
		ID:        uuid.New(),
		AccountID: accountID,
		OldStatus: from,
		NewStatus: to,
		CreatedAt: l.now().UTC(),
	}

	if l.runIDExtractor != nil {
		if runID, ok := l.runIDExtractor(ctx); ok {
			rec.RunID = runID
		}
	}

	for _, opt := range opts {
		opt(&rec)
	}

	if err := rec.Validate(); err != nil {
		return err
	}

	return l.storage.Store(ctx, rec)
}
