// Path: internal/domain/errors.go
package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound          = errors.New("not found")
	ErrMissingCredential = errors.New("missing upstream credential")
	ErrInvalidID         = errors.New("invalid recipe id")
)
