// Package logger builds *slog.Logger instances for the trial lifecycle
// services and provides attribute helpers so every component names the same
// fields the same way (account_id, template, status, ...).
//
// New applies functional options and picks a JSON or text handler. Context
// extractors registered with WithContextExtractors or WithContextValue copy
// values such as a run ID from context.Context onto every record.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.AppEnv, "trialcycle"),
//	    logger.WithContextValue("run_id", runIDKey{}),
//	)
//	log.LogAttrs(ctx, slog.LevelWarn, "status write failed",
//	    logger.AccountID(id),
//	    logger.Error(err),
//	)
//
// Attribute helpers return an empty slog.Attr for nil inputs, which slog
// drops, so callers never need a nil check before logging an error.
package logger
