// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a user is created with an email that
// is already registered.
var ErrEmailExists = errors.New("email already exists")

// ErrConflict is returned when a write violates a unique constraint
// other than the user email, e.g. a second relation for the same
// (user, account) pair. Handlers should translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
