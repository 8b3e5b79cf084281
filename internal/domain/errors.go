package domain

import "errors"

// Error kinds surfaced by the core services. Every failure path wraps one of
// these so handlers can map them to HTTP statuses with errors.Is.
var (
	ErrAlreadyInitialized = errors.New("already initialized")
	ErrNotInitialized     = errors.New("not initialized")
	ErrNotFound           = errors.New("not found")
	ErrNotAuthorized      = errors.New("not authorized")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidState       = errors.New("invalid state")
)
