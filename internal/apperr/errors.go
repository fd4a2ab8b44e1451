// Package apperr holds the error categories shared by every transport.
// Domain errors wrap one of these so handlers can map them without knowing
// the concrete type.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid")
	ErrUnavailable   = errors.New("unavailable")
)
