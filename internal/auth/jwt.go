package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gatehouse-io/gatehouse/internal/models"
)

// Token lifetimes. Session tokens cover a login; reset tokens cover a single
// password change.
const (
	SessionTTL = time.Hour
	ResetTTL   = 15 * time.Minute
)

// ErrInvalidToken is returned when a token fails signature or expiry checks.
var ErrInvalidToken = errors.New("token is not valid")

// Claims defines the JWT claims structure.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies time-bounded bearer tokens. The signing
// key is injected once at construction; there is no revocation mechanism, so
// an unexpired token stays valid for its full TTL.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService signing with the given secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// IssueSession creates a login token carrying the user's id and role.
func (s *TokenService) IssueSession(user models.User) (string, error) {
	return s.issue(Claims{UserID: user.ID, Role: user.Role}, SessionTTL)
}

// IssueReset creates a short-lived password-reset token carrying only the
// user's id.
func (s *TokenService) IssueReset(userID string) (string, error) {
	return s.issue(Claims{UserID: userID}, ResetTTL)
}

func (s *TokenService) issue(claims Claims, ttl time.Duration) (string, error) {
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	return token.SignedString(s.secret)
}

// Verify parses a token and validates its signature and expiry.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
