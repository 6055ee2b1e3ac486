// Package common contains shared sentinel errors and small helpers used
// across castship components. Callers should match errors with errors.Is.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Credential-store errors.
	ErrUnknownMode    = errors.New("unknown destination mode")
	ErrMalformedToken = errors.New("malformed secret token")
	ErrDecryptFailed  = errors.New("decryption failed")
	ErrBadMasterKey   = errors.New("invalid master key")

	// Configuration errors surfaced before any network call.
	ErrIncompleteConfig = errors.New("incomplete destination config")
)
