package trialstatus

import "errors"

var (
	ErrSnapshotNotFound = errors.New("trial status snapshot not found")
	ErrCorruptSnapshot  = errors.New("trial status snapshot is corrupt")
	ErrNoSubscription   = errors.New("account has no subscription")
	ErrFetchFailed      = errors.New("failed to fetch trial status")
	ErrAccountNotFound  = errors.New("account not found")
	ErrRoleLookup       = errors.New("failed to resolve account role")
	ErrNotGoverned      = errors.New("account role is not governed by trials")
	ErrInvalidBackend   = errors.New("unknown trial status cache backend")
)
