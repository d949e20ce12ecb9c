package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"poRequestTracker/models"
)

// ResetTokenRepository stores password reset tokens.
type ResetTokenRepository struct {
	db *sql.DB
}

func NewResetTokenRepository(db *sql.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create stores token for userID, valid until expires.
func (r *ResetTokenRepository) Create(ctx context.Context, userID int64, token string, now, expires time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO password_reset_tokens (user_id, token, created_at, expires_at, used) VALUES (?,?,?,?,0)`,
		userID, token, now.Format(models.TimestampLayout), expires.Format(models.TimestampLayout))
	return err
}

// GetWithUser returns the token row and its owner. Both are nil when the token is unknown.
func (r *ResetTokenRepository) GetWithUser(ctx context.Context, token string) (*models.ResetToken, *models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var t models.ResetToken
	var used int
	var email sql.NullString
	var u models.User
	err := r.db.QueryRowContext(ctx, `
SELECT rt.id, rt.user_id, rt.token, rt.created_at, rt.expires_at, rt.used, u.username, u.email, u.role
FROM password_reset_tokens rt
JOIN users u ON rt.user_id = u.id
WHERE rt.token = ?`, token).Scan(&t.ID, &t.UserID, &t.Token, &t.CreatedAt, &t.ExpiresAt, &used, &u.Username, &email, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	t.Used = used == 1
	u.ID = t.UserID
	u.Email = email.String
	return &t, &u, nil
}

// MarkUsed consumes a token.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE password_reset_tokens SET used = 1 WHERE id = ?`, id)
	return err
}
