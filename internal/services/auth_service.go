package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse-io/gatehouse/internal/auth"
	"github.com/gatehouse-io/gatehouse/internal/mailer"
	"github.com/gatehouse-io/gatehouse/internal/models"
)

// AuthServiceProvider defines the interface for authentication flows.
type AuthServiceProvider interface {
	Signup(ctx context.Context, name, email, password string) error
	Login(ctx context.Context, email, password string) (string, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	VerifyEmail(ctx context.Context, token string) error
}

// AuthService orchestrates signup, login and the password-reset flows over
// the user store, the token service and the mail sender.
type AuthService struct {
	users   UserStoreProvider
	tokens  *auth.TokenService
	mail    mailer.Sender
	baseURL string
}

// NewAuthService creates a new AuthService. baseURL is the public prefix
// used to build links in outgoing mail.
func NewAuthService(users UserStoreProvider, tokens *auth.TokenService, mail mailer.Sender, baseURL string) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		mail:    mail,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Signup creates an unverified account and emails a verification link. The
// mail is sent after the user is persisted, so a delivery failure leaves the
// account in place.
func (s *AuthService) Signup(ctx context.Context, name, email, password string) error {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, name, email, string(hash), models.RoleUser)
	if err != nil {
		return err
	}

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}

	body := fmt.Sprintf("Verify here: %s/verify/%s", s.baseURL, token)
	if err := s.mail.Send(ctx, user.Email, "Verify your email", body); err != nil {
		return fmt.Errorf("send verification mail: %w", err)
	}
	return nil
}

// Login checks the credentials and verification state and issues a session
// token. Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", ErrInvalidCredentials
	}
	if !user.IsVerified {
		return "", ErrNotVerified
	}

	token, err := s.tokens.IssueSession(user)
	if err != nil {
		return "", fmt.Errorf("issue session token: %w", err)
	}
	return token, nil
}

// ForgotPassword stores a short-lived reset token on the user and emails the
// reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return err
	}

	token, err := s.tokens.IssueReset(user.ID)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := s.users.SetResetToken(ctx, user.ID, token, time.Now().Add(auth.ResetTTL)); err != nil {
		return err
	}

	body := fmt.Sprintf("Reset link: %s/reset/%s", s.baseURL, token)
	if err := s.mail.Send(ctx, user.Email, "Reset Password", body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password. The token
// must verify, match the one stored on the user, and be unexpired; a token
// is single-use because the stored copy is cleared on success.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return ErrTokenInvalid
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return ErrTokenInvalid
	}
	if user.ResetToken == nil || *user.ResetToken != token {
		return ErrTokenInvalid
	}
	if user.ResetExpiry == nil || !user.ResetExpiry.After(time.Now()) {
		return ErrTokenInvalid
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.ResetPassword(ctx, user.ID, string(hash))
}

// VerifyEmail consumes a signup verification token and marks the account
// verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return ErrTokenInvalid
	}
	if err := s.users.MarkVerified(ctx, claims.UserID); err != nil {
		if err == ErrUserNotFound {
			return ErrTokenInvalid
		}
		return err
	}
	return nil
}
