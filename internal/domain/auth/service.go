package auth

import (
	"context"
)

// AuthService owns the stored backend session. Login itself happens in the
// UI; the agent only keeps the token and reacts to its expiry.
type AuthService interface {
	SaveSession(ctx context.Context, req SessionRequest) (SessionResponse, error)
	Session(ctx context.Context) (SessionResponse, error)
	Logout(ctx context.Context, reason string) error

	// Expire clears the session after the backend rejected the token.
	Expire(ctx context.Context, code, message string)

	// CheckExpiry expires a stored token whose exp claim has passed.
	CheckExpiry(ctx context.Context) error
}
