package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gatehouse-io/gatehouse/internal/auth"
	"github.com/gatehouse-io/gatehouse/internal/services"
)

// AuthHandler handles HTTP requests for the authentication flows.
type AuthHandler struct {
	service      services.AuthServiceProvider
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the login
// cookie Secure, which production should enable.
func NewAuthHandler(service services.AuthServiceProvider, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: service, secureCookie: secureCookie}
}

// SignupPayload defines the structure for signup requests.
type SignupPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordPayload defines the structure for forgot-password requests.
type ForgotPasswordPayload struct {
	Email string `json:"email"`
}

// ResetPasswordPayload defines the structure for reset-password requests.
type ResetPasswordPayload struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Signup registers a new, unverified account and sends the verification mail.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var payload SignupPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Signup(r.Context(), payload.Name, payload.Email, payload.Password); err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Signup failed")
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Signup successful, please verify your email")
}

// Login authenticates a user and returns a session token, both in the body
// and as an HTTP-only cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Failed authentication attempt")
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(auth.SessionTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ForgotPassword issues a reset token and sends the reset mail.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload ForgotPasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.ForgotPassword(r.Context(), payload.Email); err != nil {
		log.Warn().Err(err).Str("email", payload.Email).Msg("Forgot-password failed")
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Reset email sent")
}

// ResetPassword consumes a reset token and sets the new password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload ResetPasswordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.ResetPassword(r.Context(), payload.Token, payload.NewPassword); err != nil {
		log.Warn().Err(err).Msg("Password reset failed")
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Password reset successful")
}

// VerifyEmail consumes the token from the signup mail and marks the account
// verified.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if err := h.service.VerifyEmail(r.Context(), token); err != nil {
		log.Warn().Err(err).Msg("Email verification failed")
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Email verified successfully")
}

// Profile returns the claims of the authenticated user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		writeMessage(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": map[string]string{"id": claims.UserID, "role": claims.Role},
	})
}

// Admin is the admin-only landing route.
func (h *AuthHandler) Admin(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Welcome Admin")
}
