// Package session implements the client side of the service: an HTTP
// API client, a session state machine with persisted tokens, a route
// guard, and a websocket watcher for station updates.
package session

import "errors"

// Typed failures surfaced by the API client and the session manager.
// UIs render these inline; anything else is a transport-level error.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already taken")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("invalid input")
)
