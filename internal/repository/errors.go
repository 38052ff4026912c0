package repository

import "errors"

// Sentinel errors shared by the repositories.  Handlers translate these to
// HTTP status codes; sql.ErrNoRows is passed through for "not found" cases
// on single-row lookups.
var (
	// ErrUserExists is returned when inserting a user whose user_hash is
	// already taken (MySQL duplicate-key error 1062).
	ErrUserExists = errors.New("user already exists")

	// ErrDuplicateTurn is returned when a message insert is rejected because
	// a message with the same client turn ID already exists in the
	// conversation.
	ErrDuplicateTurn = errors.New("duplicate client turn")
)
