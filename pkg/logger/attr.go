package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// AccountID records the account identifier under the key "account_id".
// If id is nil, it returns an empty Attr.
func AccountID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("account_id", id)
}

// Status records a lifecycle status under the key "status".
func Status(s string) slog.Attr {
	return slog.String("status", s)
}

// Transition groups the old and new status of a lifecycle change.
func Transition(from, to string) slog.Attr {
	return slog.Group("transition", slog.String("from", from), slog.String("to", to))
}

// Template records the notification template name.
func Template(name string) slog.Attr {
	return slog.String("template", name)
}

// Channel records the delivery channel (email, sms).
func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// DaysRemaining records the computed days remaining in a trial.
func DaysRemaining(d int) slog.Attr {
	return slog.Int("days_remaining", d)
}

// RunID records the reconciliation run identifier.
func RunID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("run_id", id)
}

// Role records a role name under the key "role".
func Role(role string) slog.Attr {
	return slog.String("role", role)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Feature records a gated feature name.
func Feature(name string) slog.Attr {
	return slog.String("feature", name)
}
