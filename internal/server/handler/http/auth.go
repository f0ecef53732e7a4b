// Package http provides the HTTP handlers of the vault API: account and
// session endpoints, owner file operations and public share links.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/GophVault/internal/middleware"
	"github.com/atinyakov/GophVault/internal/models"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// AuthService defines the account and session operations required by the
// HTTP handlers.
type AuthService interface {
	// Register creates a new account or fails with common.ErrDuplicateIdentity.
	Register(ctx context.Context, username, password string) (*models.User, error)
	// Login verifies the credentials and issues a session token.
	Login(ctx context.Context, username, password string) (string, error)
	// Revoke ends the session behind token.
	Revoke(ctx context.Context, token string) error
	// Me returns the account of userID.
	Me(ctx context.Context, userID string) (*models.User, error)
}

// AuthHandler handles HTTP requests for registration, login and logout.
type AuthHandler struct {
	// AuthService performs the underlying authentication operations.
	AuthService AuthService
	Log         *zap.Logger
}

// CredentialsRequest is the JSON payload of /register and /login.
// bcrypt only looks at the first 72 bytes of a password.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func decodeCredentials(r *http.Request) (*CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, false
	}
	if err := validate.Struct(req); err != nil || len(req.Password) > 72 {
		return nil, false
	}
	return &req, true
}

// Register handles account creation. Duplicate usernames are answered with 400.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	if _, err := h.AuthService.Register(r.Context(), req.Username, req.Password); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "user registered")
}

// Login verifies credentials and returns a fresh session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid request")
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Logout revokes the session the request was authenticated with.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.AuthService.Revoke(r.Context(), middleware.GetTokenFromContext(r.Context())); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeMessage(w, http.StatusOK, "logged out")
}

// Me returns the username of the authenticated caller.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.AuthService.Me(r.Context(), middleware.GetUserIDFromContext(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"username": u.Username})
}
