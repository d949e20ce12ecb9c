package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"poRequestTracker/models"
)

// Rows shown on the settings and debug views.
const (
	settingsRecentCalls = 20
	debugRecentCalls    = 10
)

func (s *Server) bulkUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			badRequest(w, "No file uploaded")
			return
		}
		fail(w, r, err)
		return
	}
	f, hdr, err := r.FormFile("bulk_pdf")
	if err != nil {
		badRequest(w, "No file uploaded")
		return
	}
	defer f.Close()
	if !strings.EqualFold(filepath.Ext(hdr.Filename), ".pdf") {
		badRequest(w, "Only PDF files are allowed")
		return
	}

	tmp, err := os.CreateTemp(s.BulkDir, "bulk_*.pdf")
	if err != nil {
		fail(w, r, fmt.Errorf("create bulk upload file: %w", err))
		return
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := io.Copy(tmp, f); err != nil {
		_ = tmp.Close()
		fail(w, r, fmt.Errorf("store bulk upload: %w", err))
		return
	}
	if err := tmp.Close(); err != nil {
		fail(w, r, fmt.Errorf("store bulk upload: %w", err))
		return
	}

	res, err := s.Bulk.Process(r.Context(), tmp.Name(), s.now())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) settings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := s.AIUsage.Stats(ctx)
	if err != nil {
		fail(w, r, err)
		return
	}
	recent, err := s.AIUsage.Recent(ctx, settingsRecentCalls)
	if err != nil {
		fail(w, r, err)
		return
	}
	methods, err := s.Purchasing.POs.MatchMethodStats(ctx)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{
		"api_available":  s.AI.KeySet(),
		"claude_enabled": s.AI.Enabled(ctx),
		"usage_stats":    stats,
		"recent_logs":    recent,
		"match_methods":  methods,
	})
}

func (s *Server) toggleAI(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	enabled := p.bool("enabled")
	value := "false"
	if enabled {
		value = "true"
	}
	if err := s.Settings.Set(r.Context(), models.SettingAIMatchingEnabled, value); err != nil {
		fail(w, r, err)
		return
	}
	s.Logger.Info().Str("username", principal(r).Name).Bool("enabled", enabled).Msg("AI matching toggled")
	writeOK(w, http.StatusOK, object{"enabled": enabled})
}

type matchTarget struct {
	ID  int64  `json:"id"`
	Job string `json:"job"`
}

// debugMatching shows what a bulk upload would match against.
func (s *Server) debugMatching(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	all, err := s.Purchasing.POs.ListAll(ctx)
	if err != nil {
		fail(w, r, err)
		return
	}
	open, err := s.Purchasing.POs.ListApprovedWithoutInvoice(ctx)
	if err != nil {
		fail(w, r, err)
		return
	}
	targets := make([]matchTarget, 0, len(open))
	for _, po := range open {
		targets = append(targets, matchTarget{ID: po.ID, Job: po.JobName})
	}
	jobs, err := s.Purchasing.Jobs.ListActiveNames(ctx)
	if err != nil {
		fail(w, r, err)
		return
	}
	logs, err := s.AIUsage.Recent(ctx, debugRecentCalls)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, object{
		"all_pos":                all,
		"available_for_matching": targets,
		"active_jobs":            jobs,
		"claude_status": object{
			"api_key_set":      s.AI.KeySet(),
			"matching_enabled": s.AI.Enabled(ctx),
		},
		"recent_api_logs": logs,
	})
}
