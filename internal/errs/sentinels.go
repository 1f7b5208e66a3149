// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client/session layers.
var (
	// ErrUnauthorized indicates rejected credentials or an expired access token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidInput indicates the server rejected the request payload (HTTP 400).
	ErrInvalidInput = errors.New("invalid input")

	// ErrServerUnavailable indicates a 5xx response from the backend.
	ErrServerUnavailable = errors.New("server unavailable")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., phone number taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrSessionExpired indicates the refresh token could not produce a new
	// access token; the session is over and the user must log in again.
	ErrSessionExpired = errors.New("session expired")
)
