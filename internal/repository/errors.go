// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrEmailExists is returned when a user registration collides with an
// existing email address. Handlers should translate this into an
// HTTP 409 response.
var ErrEmailExists = errors.New("email already exists")

// ErrStationNotFound is returned when a station lookup, update or delete
// targets an identifier with no matching row. Handlers should translate
// this into an HTTP 404 response.
var ErrStationNotFound = errors.New("station not found")

// ErrTokenInvalid is returned when a refresh token is unknown, expired,
// revoked, or was already consumed by a concurrent rotation. Handlers
// should translate this into an HTTP 401 response.
var ErrTokenInvalid = errors.New("refresh token invalid")
