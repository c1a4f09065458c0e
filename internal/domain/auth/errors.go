package auth

import "errors"

var (
	ErrNotAuthenticated = errors.New("no active session")
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrTokenExpired     = errors.New("token has expired")
)
