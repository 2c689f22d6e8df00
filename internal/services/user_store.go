package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gatehouse-io/gatehouse/internal/models"
)

// UserStoreProvider defines the persistence operations for user accounts.
type UserStoreProvider interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	SetResetToken(ctx context.Context, id, token string, expiry time.Time) error
	ResetPassword(ctx context.Context, id, passwordHash string) error
	MarkVerified(ctx context.Context, id string) error
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// UserStore persists user accounts in SQLite.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = "id, name, email, password_hash, role, is_verified, reset_token, reset_token_expiry, created_at"

// Create inserts a new user record. The email must be unique.
func (s *UserStore) Create(ctx context.Context, name, email, passwordHash, role string) (models.User, error) {
	user := models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users(id, name, email, password_hash, role, is_verified, created_at) VALUES(?, ?, ?, ?, ?, 0, ?)",
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return user, nil
}

// GetByEmail retrieves a single user by email, including the password hash.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// GetByID retrieves a single user by id.
func (s *UserStore) GetByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// SetResetToken stores a pending password-reset token and its expiry.
func (s *UserStore) SetResetToken(ctx context.Context, id, token string, expiry time.Time) error {
	return s.update(ctx, "UPDATE users SET reset_token = ?, reset_token_expiry = ? WHERE id = ?", token, expiry, id)
}

// ResetPassword replaces the password hash and clears any pending reset token.
func (s *UserStore) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return s.update(ctx, "UPDATE users SET password_hash = ?, reset_token = NULL, reset_token_expiry = NULL WHERE id = ?", passwordHash, id)
}

// MarkVerified flips the verification flag for a user.
func (s *UserStore) MarkVerified(ctx context.Context, id string) error {
	return s.update(ctx, "UPDATE users SET is_verified = 1 WHERE id = ?", id)
}

// PurgeExpiredResetTokens clears reset-token fields whose expiry has passed
// and returns the number of affected rows.
func (s *UserStore) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET reset_token = NULL, reset_token_expiry = NULL WHERE reset_token IS NOT NULL AND reset_token_expiry <= ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *UserStore) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row *sql.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.IsVerified, &user.ResetToken, &user.ResetExpiry, &user.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
