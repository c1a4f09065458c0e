package jwt

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TokenTypeAgent marks tokens minted for the local agent API.
const TokenTypeAgent = "agent"

type Service interface {
	GenerateAgentToken(subject string) (token string, expiresAt int64, err error)
	ValidateAgentToken(tokenString string) (subject string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	tokenExpiration time.Duration
	tokenAuth       *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, tokenExpiration time.Duration) Service {
	if tokenExpiration <= 0 {
		tokenExpiration = 24 * time.Hour
	}
	return &JWTService{
		tokenExpiration: tokenExpiration,
		tokenAuth:       jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAgentToken(subject string) (token string, expiresAt int64, err error) {
	if subject == "" {
		return "", 0, errors.New("subject is required")
	}
	now := time.Now()
	expiresAt = now.Add(j.tokenExpiration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"sub":  subject,
		"type": TokenTypeAgent,
		"iat":  now.Unix(),
		"exp":  expiresAt,
	})
	return tokenString, expiresAt, err
}

// ValidateAgentToken decodes and verifies the token and returns its subject.
func (j *JWTService) ValidateAgentToken(tokenString string) (subject string, err error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TokenTypeAgent {
		return "", jwt.ErrInvalidJWT()
	}

	if token.Subject() == "" {
		return "", jwt.ErrInvalidJWT()
	}
	return token.Subject(), nil
}
