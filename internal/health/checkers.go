package health

import (
	"context"
	"database/sql"
	"time"

	"poRequestTracker/internal/storage"
)

// StorageChecker reports degraded on ephemeral storage and unhealthy when the
// data directory rejects writes.
type StorageChecker struct {
	Layout storage.Layout
}

func (c StorageChecker) Name() string { return ComponentStorage }

func (c StorageChecker) Check(_ context.Context) CheckResult {
	if err := c.Layout.Probe(); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: c.Layout.DataDir}
	}
	if !c.Layout.Persistent {
		return CheckResult{Status: StatusDegraded, Message: storage.EphemeralWarning}
	}
	return CheckResult{Status: StatusHealthy, Message: c.Layout.DataDir}
}

// DBChecker pings the database.
type DBChecker struct {
	DB      *sql.DB
	Timeout time.Duration
}

func (c DBChecker) Name() string { return ComponentDatabase }

func (c DBChecker) Check(ctx context.Context) CheckResult {
	if c.DB == nil {
		return CheckResult{Status: StatusUnhealthy, Error: "database not configured"}
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.DB.PingContext(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return CheckResult{Status: StatusHealthy}
}
