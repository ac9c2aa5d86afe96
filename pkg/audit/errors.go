package audit

import "errors"

var (
	// ErrRecordValidation indicates record validation failed
	ErrRecordValidation = errors.New("transition record validation failed")

	// ErrStorageNotAvailable indicates the storage backend is unavailable
	ErrStorageNotAvailable = errors.New("storage backend is unavailable")
)
