package purchasing

import (
	"context"
	"fmt"

	"poRequestTracker/models"
	"poRequestTracker/repository"
)

// RecentActivityCount is how many audit entries the admin dashboard shows.
const RecentActivityCount = 10

// TechDashboard lists pending requests, newest first.
func (s *Service) TechDashboard(ctx context.Context) ([]models.PORequest, error) {
	return s.POs.ListByStatus(ctx, models.POStatusPending)
}

// OfficeDashboard groups requests by where they are in the workflow.
type OfficeDashboard struct {
	Pending  []models.PORequest `json:"pending_requests"`
	Approved []models.PORequest `json:"approved_requests"`
	Invoiced []models.PORequest `json:"invoiced_requests"`
	Denied   []models.PORequest `json:"denied_requests"`
	Stats    models.POStats     `json:"stats"`
}

func (s *Service) OfficeDashboard(ctx context.Context) (*OfficeDashboard, error) {
	var d OfficeDashboard
	var err error
	if d.Pending, err = s.POs.ListByStatus(ctx, models.POStatusPending); err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	if d.Approved, err = s.POs.ListApprovedWithoutInvoice(ctx); err != nil {
		return nil, fmt.Errorf("list approved: %w", err)
	}
	if d.Invoiced, err = s.POs.ListInvoiced(ctx); err != nil {
		return nil, fmt.Errorf("list invoiced: %w", err)
	}
	if d.Denied, err = s.POs.ListByStatus(ctx, models.POStatusDenied); err != nil {
		return nil, fmt.Errorf("list denied: %w", err)
	}
	if d.Stats, err = s.POs.Stats(ctx); err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	return &d, nil
}

// SystemStats are the admin dashboard counters.
type SystemStats struct {
	TotalUsers  int `json:"total_users"`
	TechCount   int `json:"tech_count"`
	OfficeCount int `json:"office_count"`
	AdminCount  int `json:"admin_count"`
	TotalPOs    int `json:"total_pos"`
	PendingPOs  int `json:"pending_pos"`
	ApprovedPOs int `json:"approved_pos"`
	ActiveJobs  int `json:"active_jobs"`
	TotalLogs   int `json:"total_logs"`
}

// AdminDashboard is system-wide counts plus the latest audit entries.
type AdminDashboard struct {
	Stats          SystemStats            `json:"stats"`
	RecentActivity []models.ActivityEntry `json:"recent_activity"`
}

func (s *Service) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	roles, err := s.Users.CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	var st SystemStats
	for _, n := range roles {
		st.TotalUsers += n
	}
	st.TechCount = roles[models.RoleTechnician]
	st.OfficeCount = roles[models.RoleOffice]
	st.AdminCount = roles[models.RoleAdmin]

	if st.TotalPOs, err = s.POs.Count(ctx); err != nil {
		return nil, fmt.Errorf("count POs: %w", err)
	}
	ps, err := s.POs.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	st.PendingPOs, st.ApprovedPOs = ps.Pending, ps.Approved
	if st.ActiveJobs, err = s.Jobs.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("count jobs: %w", err)
	}
	if st.TotalLogs, err = s.Activity.Count(ctx); err != nil {
		return nil, fmt.Errorf("count activity: %w", err)
	}
	recent, err := s.Activity.Recent(ctx, RecentActivityCount)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	return &AdminDashboard{Stats: st, RecentActivity: recent}, nil
}

// ActivityView is the filtered audit trail with the values offered as filters.
type ActivityView struct {
	Logs    []models.ActivityEntry    `json:"logs"`
	Actions []string                  `json:"actions"`
	Users   []string                  `json:"users"`
	Filter  repository.ActivityFilter `json:"filter"`
}

func (s *Service) ActivityLog(ctx context.Context, f repository.ActivityFilter) (*ActivityView, error) {
	logs, err := s.Activity.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	actions, err := s.Activity.DistinctActions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	users, err := s.Activity.DistinctUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return &ActivityView{Logs: logs, Actions: actions, Users: users, Filter: f}, nil
}
