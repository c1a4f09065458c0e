package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/events"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/storage"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"golang.org/x/oauth2"
)

type AuthServiceImpl struct {
	kv  storage.KeyValueStore
	bus *events.Bus
	now func() time.Time
}

// claims reads sub/exp without verifying the signature; the agent does
// not hold the backend's signing key. Opaque tokens yield zero values.
func claims(token string) (subject string, expiry time.Time) {
	parsed, err := jwt.ParseString(token, jwt.WithVerify(false), jwt.WithValidate(false))
	if err != nil {
		return "", time.Time{}
	}
	return parsed.Subject(), parsed.Expiration()
}

// SaveSession implements auth.AuthService.
func (s *AuthServiceImpl) SaveSession(ctx context.Context, req auth.SessionRequest) (auth.SessionResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.SessionResponse{}, err
	}

	subject, expiry := claims(req.Token)
	if !expiry.IsZero() && !expiry.After(s.now()) {
		return auth.SessionResponse{}, auth.ErrTokenExpired
	}

	entries := map[string]string{storage.KeyAuthToken: req.Token}
	if len(req.User) > 0 && string(req.User) != "null" {
		entries[storage.KeyUser] = string(req.User)
	}
	if err := s.kv.SetMany(ctx, entries); err != nil {
		return auth.SessionResponse{}, fmt.Errorf("failed to store session: %w", err)
	}

	slog.Info("session stored", "subject", subject, "expires_at", expiry)
	return s.Session(ctx)
}

// Session implements auth.AuthService.
func (s *AuthServiceImpl) Session(ctx context.Context) (auth.SessionResponse, error) {
	token, ok, err := s.kv.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return auth.SessionResponse{}, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || token == "" {
		return auth.SessionResponse{}, auth.ErrNotAuthenticated
	}

	resp := auth.SessionResponse{Authenticated: true}
	subject, expiry := claims(token)
	resp.Subject = subject
	if !expiry.IsZero() {
		exp := expiry.UTC().Format(time.RFC3339)
		resp.ExpiresAt = &exp
	}

	if user, ok, err := s.kv.Get(ctx, storage.KeyUser); err == nil && ok && json.Valid([]byte(user)) {
		resp.User = json.RawMessage(user)
	}

	return resp, nil
}

// Logout implements auth.AuthService.
func (s *AuthServiceImpl) Logout(ctx context.Context, reason string) error {
	if err := s.kv.Delete(ctx, storage.KeyAuthToken, storage.KeyUser); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	if reason == "" {
		reason = "user"
	}
	slog.Info("session cleared", "reason", reason)
	s.bus.Publish(events.KindLoggedOut, events.LoggedOut{Reason: reason})
	return nil
}

// Expire implements auth.AuthService.
func (s *AuthServiceImpl) Expire(ctx context.Context, code, message string) {
	if err := s.kv.Delete(ctx, storage.KeyAuthToken, storage.KeyUser); err != nil {
		slog.Error("failed to clear expired session", "error", err)
	}
	slog.Warn("session expired", "code", code, "message", message)
	s.bus.Publish(events.KindSessionExpired, events.SessionExpired{Code: code, Message: message})
}

// CheckExpiry implements auth.AuthService.
func (s *AuthServiceImpl) CheckExpiry(ctx context.Context) error {
	token, ok, err := s.kv.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	if _, expiry := claims(token); !expiry.IsZero() && !expiry.After(s.now()) {
		s.Expire(ctx, "token_expired", auth.ErrTokenExpired.Error())
	}
	return nil
}

// Token implements oauth2.TokenSource for the backend client. The stored
// token is read on every call so login and logout take effect immediately.
func (s *AuthServiceImpl) Token() (*oauth2.Token, error) {
	token, ok, err := s.kv.Get(context.Background(), storage.KeyAuthToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	if !ok || token == "" {
		return nil, auth.ErrNotAuthenticated
	}

	_, expiry := claims(token)
	if !expiry.IsZero() && !expiry.After(s.now()) {
		return nil, auth.ErrTokenExpired
	}

	return &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: expiry}, nil
}

var _ oauth2.TokenSource = (*AuthServiceImpl)(nil)

func NewAuthService(kv storage.KeyValueStore, bus *events.Bus) *AuthServiceImpl {
	return &AuthServiceImpl{kv: kv, bus: bus, now: time.Now}
}
