package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"poRequestTracker/models"
)

// ActivityLimit caps the number of rows returned by List.
const ActivityLimit = 500

// ActivityRepository is the audit trail.
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Log appends an entry, recording the user's email or "N/A" when none is on file.
func (r *ActivityRepository) Log(ctx context.Context, username, action, targetType string, targetID *int64, details string) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `INSERT INTO activity_log (username, user_email, action, target_type, target_id, details, timestamp)
VALUES (?, COALESCE((SELECT NULLIF(email, '') FROM users WHERE username = ? COLLATE NOCASE), 'N/A'), ?, ?, ?, ?, ?)`,
		username, username, action, nullString(targetType), targetID, details, time.Now().Format(models.TimestampLayout))
	return err
}

// ActivityFilter narrows List. User is a substring match, Action is exact.
type ActivityFilter struct {
	User   string `json:"filter_user"`
	Action string `json:"filter_action"`
}

// List returns the newest entries matching f, capped at ActivityLimit.
func (r *ActivityRepository) List(ctx context.Context, f ActivityFilter) ([]models.ActivityEntry, error) {
	var where []string
	var args []any
	if f.User != "" {
		where = append(where, "username LIKE ?")
		args = append(args, "%"+f.User+"%")
	}
	if f.Action != "" {
		where = append(where, "action = ?")
		args = append(args, f.Action)
	}
	tail := ""
	if len(where) > 0 {
		tail = " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, ActivityLimit)
	return r.query(ctx, tail+" ORDER BY timestamp DESC, id DESC LIMIT ?", args...)
}

// Recent returns the n newest entries.
func (r *ActivityRepository) Recent(ctx context.Context, n int) ([]models.ActivityEntry, error) {
	if n <= 0 {
		n = 10
	}
	return r.query(ctx, " ORDER BY timestamp DESC, id DESC LIMIT ?", n)
}

func (r *ActivityRepository) query(ctx context.Context, tail string, args ...any) ([]models.ActivityEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT id, username, user_email, action, target_type, target_id, details, timestamp FROM activity_log`+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.ActivityEntry
	for rows.Next() {
		var e models.ActivityEntry
		var email, targetType, details sql.NullString
		var targetID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.Username, &email, &e.Action, &targetType, &targetID, &details, &e.Timestamp); err != nil {
			return nil, err
		}
		e.UserEmail = email.String
		e.TargetType = targetType.String
		e.Details = details.String
		if targetID.Valid {
			v := targetID.Int64
			e.TargetID = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DistinctActions lists every action recorded, sorted.
func (r *ActivityRepository) DistinctActions(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "action")
}

// DistinctUsers lists every username recorded, sorted.
func (r *ActivityRepository) DistinctUsers(ctx context.Context) ([]string, error) {
	return r.distinct(ctx, "username")
}

func (r *ActivityRepository) distinct(ctx context.Context, column string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT `+column+` FROM activity_log ORDER BY `+column)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the number of audit entries.
func (r *ActivityRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activity_log`).Scan(&n)
	return n, err
}
