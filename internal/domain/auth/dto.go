package auth

import (
	"encoding/json"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/pkg/validator"
)

// SessionRequest hands the backend token obtained by the UI to the agent.
type SessionRequest struct {
	Token string          `json:"token"`
	User  json.RawMessage `json:"user,omitempty"`
}

func (r *SessionRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(r.Token), "Bearer "))
	if validator.IsEmpty(r.Token) {
		errs = append(errs, validator.ValidationError{
			Field:   "token",
			Message: "token is required",
		})
	}

	if len(r.User) > 0 && string(r.User) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(r.User, &obj); err != nil {
			errs = append(errs, validator.ValidationError{
				Field:   "user",
				Message: "user must be a JSON object",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type SessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	Subject       string          `json:"subject,omitempty"`
	ExpiresAt     *string         `json:"expires_at,omitempty"`
	User          json.RawMessage `json:"user,omitempty"`
}

// AgentTokenResponse is returned when minting a token for the local API.
type AgentTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}
