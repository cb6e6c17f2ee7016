package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/PrabinKa/ShipMate/internal/session"
	"github.com/PrabinKa/ShipMate/pkg/httputil"
	"github.com/PrabinKa/ShipMate/pkg/validator"
)

// Authenticator exchanges user credentials for a session pair.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (session.Credentials, error)
}

// CredentialSession is the slice of the session the handler mutates.
type CredentialSession interface {
	Authenticated() bool
	SetAccess(token string) error
	SetRefresh(token string) error
	Clear() error
}

// SessionHandler handles login and logout for the device session.
type SessionHandler struct {
	auth    Authenticator
	session CredentialSession
	logger  *slog.Logger
}

// NewSessionHandler creates a new session HTTP handler.
func NewSessionHandler(auth Authenticator, sess CredentialSession, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{auth: auth, session: sess, logger: logger}
}

// LoginRequest is the JSON request body for signing in.
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=1,max=200"`
}

// Login handles POST /api/v1/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	creds, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if err := h.session.SetAccess(creds.Access); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if err := h.session.SetRefresh(creds.Refresh); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	h.logger.Info("user signed in", slog.String("username", req.Username))
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]bool{"authenticated": true},
	})
}

// Logout handles POST /api/v1/session/logout
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Clear(); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/v1/session
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: map[string]bool{"authenticated": h.session.Authenticated()},
	})
}
