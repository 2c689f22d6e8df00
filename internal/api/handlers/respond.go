package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/gatehouse-io/gatehouse/internal/services"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeMessage sends a `{"message": ...}` body.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// writeServiceError maps a service-layer error to its HTTP status and
// user-facing message. Unknown errors are logged and surface as a generic
// 500 so internal detail never reaches the client.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		writeMessage(w, http.StatusBadRequest, "Could not create account")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, services.ErrNotVerified):
		writeMessage(w, http.StatusUnauthorized, "Please verify your email")
	case errors.Is(err, services.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, services.ErrTokenInvalid):
		writeMessage(w, http.StatusBadRequest, "Token is invalid or expired")
	default:
		log.Error().Err(err).Msg("Unhandled service error")
		writeMessage(w, http.StatusInternalServerError, "Something went wrong")
	}
}
