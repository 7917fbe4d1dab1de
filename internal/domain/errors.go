package domain

import "errors"

// Shared sentinel errors used across multiple domain types. Type-specific
// errors (duplicate entry, invalid state transition, ...) live next to the
// type they guard.
var (
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrSameAccount      = errors.New("cannot post an entry between the same account")
	ErrMetadataTooLarge = errors.New("metadata size exceeds limit")
	ErrAccountNotFound  = errors.New("account not found")
)
