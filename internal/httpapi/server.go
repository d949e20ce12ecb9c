// Package httpapi is the JSON HTTP interface of the tracker.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"poRequestTracker/internal/accounts"
	"poRequestTracker/internal/auth"
	"poRequestTracker/internal/bulk"
	"poRequestTracker/internal/health"
	"poRequestTracker/internal/log"
	"poRequestTracker/internal/matching"
	"poRequestTracker/internal/purchasing"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

// Login and password reset attempts allowed per client IP per minute.
const authRequestsPerMinute = 10

// Server holds the services behind the HTTP routes.
type Server struct {
	Accounts   *accounts.Service
	Purchasing *purchasing.Service
	Bulk       *bulk.Processor
	AI         *matching.AIMatcher
	Settings   *repository.SettingsRepository
	AIUsage    *repository.AIUsageRepository
	Health     *health.Manager
	Verifier   *health.Verifier
	Sessions   *auth.Sessions
	Secret     string
	// BulkDir receives bulk uploads while they are split.
	BulkDir      string
	MaxUploadMB  int64
	SecureCookie bool
	Logger       zerolog.Logger
	Now          func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(log.RequestID)
	r.Use(log.AccessLog)
	r.Use(auth.Middleware(s.Secret, s.Sessions))

	r.Get("/health", s.Health.ServeHealth)
	r.Get("/api/verify", s.Verifier.ServeVerify)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(authRequestsPerMinute, time.Minute))
		r.Post("/login", s.login)
		r.Post("/forgot_password", s.forgotPassword)
		r.Get("/reset_password/{token}", s.checkResetToken)
		r.Post("/reset_password/{token}", s.resetPassword)
	})
	r.Post("/logout", s.logout)
	r.Get("/login_with_token/{token}", s.loginWithToken)
	r.Post("/register", s.register)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole())
		r.Get("/get_jobs", s.getJobs)
		r.Post("/validate_job", s.validateJob)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleTechnician))
		r.Get("/tech_dashboard", s.techDashboard)
		r.Post("/submit_request", s.submitRequest)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleOffice))
		r.Use(s.limitBody)
		r.Get("/office_dashboard", s.officeDashboard)
		r.Get("/activity_log", s.activityLog)
		r.Post("/process_request/{id}", s.processRequest)
		r.Post("/bulk_process_pos", s.bulkProcess)
		r.Post("/upload_invoice/{id}", s.uploadInvoice)
		r.Post("/delete_request", s.deleteRequest)
		r.Post("/delete_invoice", s.deleteInvoice)
		r.Post("/undo_approval", s.undoApproval)
		r.Get("/view_invoice/{filename}", s.viewInvoice)
		r.Get("/manage_jobs", s.manageJobs)
		r.Get("/get_job_details/{id}", s.jobDetails)
		r.Post("/add_job", s.addJob)
		r.Post("/edit_job", s.editJob)
		r.Post("/toggle_job", s.toggleJob)
		r.Post("/delete_job", s.deleteJob)
		r.Post("/bulk_upload_invoices", s.bulkUpload)
		r.Get("/settings", s.settings)
		r.Post("/settings/toggle_claude", s.toggleAI)
		r.Get("/api/debug_matching", s.debugMatching)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleAdmin))
		r.Get("/admin_dashboard", s.adminDashboard)
		r.Get("/admin/users", s.listUsers)
		r.Post("/admin/users", s.createUser)
		r.Get("/admin/users/{id}", s.getUser)
		r.Put("/admin/users/{id}", s.updateUser)
		r.Delete("/admin/users/{id}", s.deleteUser)
	})
	return r
}

// limitBody caps request bodies at MaxUploadMB.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.MaxUploadMB > 0 && r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxUploadMB<<20)
		}
		next.ServeHTTP(w, r)
	})
}

// principal returns the caller; routes behind RequireRole always have one.
func principal(r *http.Request) *auth.Principal {
	p, _ := auth.FromContext(r.Context())
	if p == nil {
		return &auth.Principal{}
	}
	return p
}
