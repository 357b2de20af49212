package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized indicates a request without a valid signed-in user.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAccessDenied indicates the caller may not act on the requested company.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidToken indicates the identity provider token failed verification.
	ErrInvalidToken = errors.New("invalid token")
)
