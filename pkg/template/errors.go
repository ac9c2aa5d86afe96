package template

import "errors"

var (
	ErrInvalidTemplate     = errors.New("invalid notification template")
	ErrDuplicateTemplate   = errors.New("duplicate notification template name")
	ErrFailedToLoadCatalog = errors.New("failed to load notification templates")
)
