// Package common defines sentinel errors and small helpers shared by the
// repository, service and transport layers. Callers match errors with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateIdentity = errors.New("username already exists")

	// Authentication and authorization errors.
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")

	// Share capability errors.
	ErrInvalidShare = errors.New("invalid share link")
)
