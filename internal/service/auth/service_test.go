package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/events"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/storage"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewBuilder().Subject(subject).Expiration(exp).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("backend-secret")))
	require.NoError(t, err)
	return string(signed)
}

func newService(t *testing.T) (*AuthServiceImpl, *storage.MemoryStorage, *events.Bus) {
	t.Helper()
	kv := storage.NewMemoryStorage()
	bus := events.NewBus()
	return NewAuthService(kv, bus), kv, bus
}

func TestSaveSession_StoresTokenAndUser(t *testing.T) {
	svc, kv, _ := newService(t)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, "42", exp)

	resp, err := svc.SaveSession(ctx, auth.SessionRequest{Token: "Bearer " + token, User: []byte(`{"id":42,"name":"Ayu"}`)})
	require.NoError(t, err)
	assert.True(t, resp.Authenticated)
	assert.Equal(t, "42", resp.Subject)
	require.NotNil(t, resp.ExpiresAt)
	assert.Equal(t, exp.UTC().Format(time.RFC3339), *resp.ExpiresAt)
	assert.JSONEq(t, `{"id":42,"name":"Ayu"}`, string(resp.User))

	stored, ok, err := kv.Get(ctx, storage.KeyAuthToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, token, stored)

	oauthTok, err := svc.Token()
	require.NoError(t, err)
	assert.Equal(t, token, oauthTok.AccessToken)
	assert.Equal(t, "Bearer", oauthTok.TokenType)
}

func TestSaveSession_OpaqueToken(t *testing.T) {
	svc, _, _ := newService(t)

	resp, err := svc.SaveSession(context.Background(), auth.SessionRequest{Token: "opaque-token"})
	require.NoError(t, err)
	assert.True(t, resp.Authenticated)
	assert.Nil(t, resp.ExpiresAt)
}

func TestSaveSession_RejectsExpiredToken(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.SaveSession(context.Background(), auth.SessionRequest{Token: signedToken(t, "1", time.Now().Add(-time.Minute))})
	assert.ErrorIs(t, err, auth.ErrTokenExpired)
}

func TestSaveSession_Validation(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.SaveSession(context.Background(), auth.SessionRequest{Token: " ", User: []byte(`[1,2]`)})
	var verrs validator.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 2)
}

func TestToken_NotAuthenticated(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Token()
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	_, err = svc.Session(context.Background())
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestLogout_ClearsAndPublishes(t *testing.T) {
	svc, kv, bus := newService(t)
	ctx := context.Background()
	require.NoError(t, kv.SetMany(ctx, map[string]string{storage.KeyAuthToken: "t", storage.KeyUser: "{}"}))

	ch, unsubscribe := bus.Subscribe(events.KindLoggedOut)
	defer unsubscribe()

	require.NoError(t, svc.Logout(ctx, ""))

	_, ok, _ := kv.Get(ctx, storage.KeyUser)
	assert.False(t, ok)

	ev := <-ch
	assert.Equal(t, events.LoggedOut{Reason: "user"}, ev.Payload)
}

func TestCheckExpiry_ExpiresStaleToken(t *testing.T) {
	svc, kv, bus := newService(t)
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, storage.KeyAuthToken, signedToken(t, "1", time.Now().Add(time.Minute))))

	ch, unsubscribe := bus.Subscribe(events.KindSessionExpired)
	defer unsubscribe()

	require.NoError(t, svc.CheckExpiry(ctx))
	_, ok, _ := kv.Get(ctx, storage.KeyAuthToken)
	assert.True(t, ok)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	require.NoError(t, svc.CheckExpiry(ctx))
	_, ok, _ = kv.Get(ctx, storage.KeyAuthToken)
	assert.False(t, ok)

	ev := <-ch
	payload := ev.Payload.(events.SessionExpired)
	assert.Equal(t, "token_expired", payload.Code)
}
