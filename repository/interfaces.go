package repository

import (
	"context"
	"time"

	"poRequestTracker/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	CountByRole(ctx context.Context) (map[string]int, error)
}

// PORequestRepositoryI defines operations on PORequest entities.
type PORequestRepositoryI interface {
	Create(ctx context.Context, p *models.PORequest) (*models.PORequest, error)
	GetByID(ctx context.Context, id int64) (*models.PORequest, error)
	ListByStatus(ctx context.Context, status models.POStatus) ([]models.PORequest, error)
	ListApprovedWithoutInvoice(ctx context.Context) ([]models.PORequest, error)
	ListInvoiced(ctx context.Context) ([]models.PORequest, error)
	ListInvoicedForJob(ctx context.Context, jobName string) ([]models.PORequest, error)
	MaxID(ctx context.Context) (int64, error)
	CountByID(ctx context.Context, id int64) (int, error)
	UpdateDecision(ctx context.Context, id int64, d Decision) (bool, error)
	UpdateDecisionIfPending(ctx context.Context, id int64, d Decision) (bool, error)
	ResetToPending(ctx context.Context, id int64) error
	SetInvoice(ctx context.Context, id int64, inv Invoice) error
	ClearInvoice(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Stats(ctx context.Context) (models.POStats, error)
	Count(ctx context.Context) (int, error)
}

// JobRepositoryI defines operations on Job entities.
type JobRepositoryI interface {
	Create(ctx context.Context, name string, year int) (*models.Job, error)
	GetByID(ctx context.Context, id int64) (*models.Job, error)
	FindActiveByName(ctx context.Context, name string) (*models.Job, error)
	ListActive(ctx context.Context) ([]models.Job, error)
	ListActiveNames(ctx context.Context) ([]string, error)
	ListSummaries(ctx context.Context) ([]models.JobSummary, error)
	Update(ctx context.Context, id int64, name string, year int) error
	ToggleActive(ctx context.Context, id int64) (bool, bool, error)
	Delete(ctx context.Context, id int64) error
	CountPOsForJob(ctx context.Context, jobName string) (int, error)
	CountActive(ctx context.Context) (int, error)
}

// ActivityLogger appends audit entries.
type ActivityLogger interface {
	Log(ctx context.Context, username, action, targetType string, targetID *int64, details string) error
}

// SettingsStore reads and writes runtime settings.
type SettingsStore interface {
	Get(ctx context.Context, key, def string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// AIUsageLogger records AI matcher calls.
type AIUsageLogger interface {
	Log(ctx context.Context, u models.AIUsage) error
}

var (
	_ UserRepositoryI      = (*UserRepository)(nil)
	_ PORequestRepositoryI = (*PORequestRepository)(nil)
	_ JobRepositoryI       = (*JobRepository)(nil)
	_ ActivityLogger       = (*ActivityRepository)(nil)
	_ SettingsStore        = (*SettingsRepository)(nil)
	_ AIUsageLogger        = (*AIUsageRepository)(nil)
)
