package health

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"poRequestTracker/internal/log"
)

// Overall verdicts of the setup report.
const (
	AllSystemsGo   = "ALL SYSTEMS GO"
	IssuesDetected = "ISSUES DETECTED"
)

// AIProbe is the part of the invoice matcher the setup report needs.
type AIProbe interface {
	KeySet() bool
	Enabled(ctx context.Context) bool
	Ping(ctx context.Context) (string, error)
}

// Verifier builds the /api/verify configuration report.
type Verifier struct {
	AI           AIProbe
	APIKey       string
	SecretSet    bool
	DataDirSet   bool
	WebsiteURL   string
	TelegramBot  bool
	TelegramChat bool
	DB           *sql.DB
	PingTimeout  time.Duration
}

// DBCounts are row counts of the main tables.
type DBCounts struct {
	Users      int `json:"users"`
	Jobs       int `json:"jobs"`
	PORequests int `json:"po_requests"`
}

// Report is the configuration report. Secrets are never included; only the
// first characters of the API key are shown.
type Report struct {
	APIKeySet         bool      `json:"anthropic_api_key_set"`
	APIKeyPreview     string    `json:"anthropic_api_key_preview,omitempty"`
	MatchingEnabled   bool      `json:"claude_matching_enabled"`
	APIConnected      bool      `json:"anthropic_api_connected"`
	APIResponse       string    `json:"anthropic_api_response,omitempty"`
	APIError          string    `json:"anthropic_api_error,omitempty"`
	SecretKeySet      bool      `json:"secret_key_set"`
	DataDirSet        bool      `json:"data_dir_set"`
	WebsiteURL        string    `json:"website_url"`
	TelegramBot       bool      `json:"telegram_bot_configured"`
	TelegramChat      bool      `json:"telegram_chat_configured"`
	DatabaseConnected bool      `json:"database_connected"`
	DatabaseCounts    *DBCounts `json:"database_counts,omitempty"`
	DatabaseError     string    `json:"database_error,omitempty"`
	OverallStatus     string    `json:"overall_status"`
}

// Verify collects the report. It calls the AI API once when a key is set.
func (v *Verifier) Verify(ctx context.Context) Report {
	r := Report{
		SecretKeySet: v.SecretSet,
		DataDirSet:   v.DataDirSet,
		WebsiteURL:   v.WebsiteURL,
		TelegramBot:  v.TelegramBot,
		TelegramChat: v.TelegramChat,
	}
	if r.WebsiteURL == "" {
		r.WebsiteURL = "not set"
	}

	r.APIKeySet = v.APIKey != ""
	if r.APIKeySet {
		n := min(7, len(v.APIKey))
		r.APIKeyPreview = v.APIKey[:n] + "..."
	}
	if v.AI != nil {
		r.MatchingEnabled = v.AI.Enabled(ctx)
		if v.AI.KeySet() {
			timeout := v.PingTimeout
			if timeout <= 0 {
				timeout = 15 * time.Second
			}
			pctx, cancel := context.WithTimeout(ctx, timeout)
			reply, err := v.AI.Ping(pctx)
			cancel()
			if err != nil {
				r.APIError = err.Error()
			} else {
				r.APIConnected = true
				r.APIResponse = reply
			}
		}
	}

	if counts, err := v.counts(ctx); err != nil {
		r.DatabaseError = err.Error()
	} else {
		r.DatabaseConnected = true
		r.DatabaseCounts = counts
	}

	r.OverallStatus = IssuesDetected
	if r.APIKeySet && r.APIConnected && r.DatabaseConnected && r.SecretKeySet {
		r.OverallStatus = AllSystemsGo
	}
	return r
}

func (v *Verifier) counts(ctx context.Context) (*DBCounts, error) {
	if v.DB == nil {
		return nil, sql.ErrConnDone
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var c DBCounts
	err := v.DB.QueryRowContext(ctx, `SELECT
(SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM jobs), (SELECT COUNT(*) FROM po_requests)`).
		Scan(&c.Users, &c.Jobs, &c.PORequests)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ServeVerify writes the report as JSON.
func (v *Verifier) ServeVerify(w http.ResponseWriter, r *http.Request) {
	rep := v.Verify(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		log.FromContext(r.Context()).Error().Err(err).Msg("encode verify report")
	}
}
