package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired accepts only verified agent tokens. It runs after
// jwtauth.Verify, which stores the token and error in the context.
func AuthRequired(next http.Handler) http.Handler {
	hfn := func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())

		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}

		if token == nil {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		tokenType, ok := claims["type"].(string)
		if tokenType != jwt.TokenTypeAgent || !ok {
			response.HandleError(w, auth.ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hfn)
}
