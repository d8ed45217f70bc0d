package models

import "errors"

// Error classes surfaced by the lifecycle managers. Callers match them with
// errors.Is; the wrapped message carries the detail.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrNotFound         = errors.New("not found")
	ErrInvalidState     = errors.New("invalid state")
	ErrStoreUnavailable = errors.New("store unavailable")
)
