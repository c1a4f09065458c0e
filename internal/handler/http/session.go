package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/domain/auth"
	"github.com/cmlabs-hris/hris-attendance-agent/internal/handler/http/response"
)

type SessionHandler interface {
	Get(w http.ResponseWriter, r *http.Request)
	Put(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
}

type sessionHandlerImpl struct {
	authService auth.AuthService
	store       attendance.SessionStore
}

func NewSessionHandler(authService auth.AuthService, store attendance.SessionStore) SessionHandler {
	return &sessionHandlerImpl{
		authService: authService,
		store:       store,
	}
}

// Get implements SessionHandler.
func (h *sessionHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	resp, err := h.authService.Session(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, resp)
}

// Put implements SessionHandler. A refresh is attempted right away so the
// UI gets the server's view of the new user.
func (h *sessionHandlerImpl) Put(w http.ResponseWriter, r *http.Request) {
	var req auth.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	resp, err := h.authService.SaveSession(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	if err := h.store.Refresh(r.Context()); err != nil {
		slog.Warn("refresh after session change failed", "error", err)
	}

	response.SuccessWithMessage(w, "Session stored", resp)
}

// Delete implements SessionHandler.
func (h *sessionHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.authService.Logout(r.Context(), "user"); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Logged out", nil)
}
