package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/atinyakov/GophVault/internal/common"
	"go.uber.org/zap"
)

// statusFor maps a domain error onto its HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrUnauthenticated), errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound), errors.Is(err, common.ErrInvalidShare):
		return http.StatusNotFound
	case errors.Is(err, common.ErrDuplicateIdentity):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var messages = map[int]string{
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not found",
	http.StatusInternalServerError: "internal error",
}

// writeError answers with the status for err. Storage failures are logged and
// never leak their details to the client.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	msg := messages[status]
	switch {
	case errors.Is(err, common.ErrDuplicateIdentity):
		msg = "user already exists"
	case errors.Is(err, common.ErrInvalidCredentials):
		msg = "invalid username or password"
	case errors.Is(err, common.ErrInvalidShare):
		msg = "invalid or expired share link"
	}
	if status == http.StatusInternalServerError && log != nil {
		log.Error("request failed", zap.Error(err))
	}
	writeMessage(w, status, msg)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
