// Package repository persists canonical and Platform entities as versioned
// rows, with an in-memory backend and a GORM/Postgres backend behind the
// same Store interface.
package repository

import "errors"

// Sentinel errors returned by every Store implementation. Handlers classify
// these into the HTTP status table rather than inspecting error strings.
var (
	// ErrNotFound is returned when the requested name or id has no row.
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists is returned by Create when the name is already taken.
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrConnectionFailed is returned when the backing store cannot be reached.
	ErrConnectionFailed = errors.New("repository connection failed")
)
