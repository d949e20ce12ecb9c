// Package health reports whether the service can serve traffic and whether
// its data survives a redeploy.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"poRequestTracker/internal/log"
)

// Status is the overall or per-component health.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Component names used by the built-in checkers.
const (
	ComponentStorage  = "storage"
	ComponentDatabase = "database"
)

// CheckResult is the outcome of one component check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Checker checks one component.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// Response is the body of GET /health.
type Response struct {
	Status            Status                 `json:"status"`
	PersistentStorage bool                   `json:"persistent_storage"`
	DataDir           string                 `json:"data_dir"`
	Database          bool                   `json:"database"`
	Version           string                 `json:"version,omitempty"`
	Timestamp         time.Time              `json:"timestamp"`
	Checks            map[string]CheckResult `json:"checks,omitempty"`
}

// Manager runs the registered checkers.
type Manager struct {
	version    string
	dataDir    string
	persistent bool
	checkers   []Checker
}

// NewManager returns a manager describing the given data directory.
func NewManager(version, dataDir string, persistent bool) *Manager {
	return &Manager{version: version, dataDir: dataDir, persistent: persistent}
}

func (m *Manager) RegisterChecker(c Checker) {
	m.checkers = append(m.checkers, c)
}

// PersistentStorage reports whether DATA_DIR points at a mounted volume.
func (m *Manager) PersistentStorage() bool { return m.persistent }

// Health runs every checker. The worst component status wins.
func (m *Manager) Health(ctx context.Context) Response {
	resp := Response{
		Status:            StatusHealthy,
		PersistentStorage: m.persistent,
		DataDir:           m.dataDir,
		Version:           m.version,
		Timestamp:         time.Now().UTC(),
		Checks:            make(map[string]CheckResult, len(m.checkers)),
	}
	for _, c := range m.checkers {
		res := c.Check(ctx)
		resp.Checks[c.Name()] = res
		switch res.Status {
		case StatusUnhealthy:
			resp.Status = StatusUnhealthy
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	if db, ok := resp.Checks[ComponentDatabase]; ok {
		resp.Database = db.Status == StatusHealthy
	}
	return resp
}

// Serving reports whether no component is unhealthy.
func (m *Manager) Serving(ctx context.Context) bool {
	return m.Health(ctx).Status != StatusUnhealthy
}

// ServeHealth writes the health response, with 503 when unhealthy.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	resp := m.Health(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if resp.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Msg("encode health response")
	}
	logger.Debug().
		Str("status", string(resp.Status)).
		Bool("persistent_storage", resp.PersistentStorage).
		Msg("health check performed")
}
