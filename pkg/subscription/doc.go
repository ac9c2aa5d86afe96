// Package subscription holds the per-account subscription record that the
// trial lifecycle governs, together with the persistence contract used to read
// it and to advance its status.
//
// Only the trial family of statuses (trial, trial_expired, suspended) is
// written by this module; active and canceled are owned by upgrade and
// cancellation flows elsewhere.
//
// Status writes are compare-and-swap: Store.UpdateStatus only succeeds when
// the stored status still equals the expected previous value, so a concurrent
// admin reset or upgrade is never clobbered. A lost race is reported as
// ErrStatusConflict.
//
// Two Store implementations are provided: MemoryStore for tests and local
// development, and PGStore backed by a pgx connection pool.
package subscription
