package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"poRequestTracker/models"
	"poRequestTracker/repository"
)

// JobOption is an active job as offered in pick lists.
type JobOption struct {
	Name    string `json:"name"`
	Year    int    `json:"year"`
	Display string `json:"display"`
}

// ActiveJobs lists active jobs, newest year first.
func (s *Service) ActiveJobs(ctx context.Context) ([]JobOption, error) {
	jobs, err := s.Jobs.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]JobOption, 0, len(jobs))
	for i := range jobs {
		out = append(out, JobOption{Name: jobs[i].Name, Year: jobs[i].Year, Display: jobs[i].Display()})
	}
	return out, nil
}

// ValidateJob returns the stored spelling of an active job name.
func (s *Service) ValidateJob(ctx context.Context, name string) (string, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", false, nil
	}
	job, err := s.Jobs.FindActiveByName(ctx, name)
	if err != nil || job == nil {
		return "", false, err
	}
	return job.Name, true, nil
}

// JobSummaries lists every job with its PO totals.
func (s *Service) JobSummaries(ctx context.Context) ([]models.JobSummary, error) {
	return s.Jobs.ListSummaries(ctx)
}

// AddJob creates an active job. year is the raw form value.
func (s *Service) AddJob(ctx context.Context, actor, name, year string) (*models.Job, error) {
	name, year = strings.TrimSpace(name), strings.TrimSpace(year)
	if name == "" || year == "" {
		return nil, fmt.Errorf("%w: job name and year required", ErrInvalidInput)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid year", ErrInvalidInput)
	}
	job, err := s.Jobs.Create(ctx, name, y)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, ErrJobExists
	}
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.auditJob(ctx, actor, "JOB_ADDED", job.ID, job.Display())
	return job, nil
}

// EditJob renames a job and changes its year.
func (s *Service) EditJob(ctx context.Context, actor string, id int64, name string, year int) error {
	name = strings.TrimSpace(name)
	if id <= 0 || name == "" || year == 0 {
		return fmt.Errorf("%w: all fields required", ErrInvalidInput)
	}
	job, err := s.Jobs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get job %d: %w", id, err)
	}
	if job == nil {
		return ErrJobNotFound
	}
	err = s.Jobs.Update(ctx, id, name, year)
	if errors.Is(err, repository.ErrDuplicate) {
		return ErrJobExists
	}
	if err != nil {
		return fmt.Errorf("update job %d: %w", id, err)
	}
	s.auditJob(ctx, actor, "JOB_EDITED", id, fmt.Sprintf("%s -> %s (%d)", job.Display(), name, year))
	return nil
}

// ToggleJob flips a job between active and inactive and returns the new state.
func (s *Service) ToggleJob(ctx context.Context, actor string, id int64) (bool, error) {
	active, found, err := s.Jobs.ToggleActive(ctx, id)
	if err != nil {
		return false, fmt.Errorf("toggle job %d: %w", id, err)
	}
	if !found {
		return false, ErrJobNotFound
	}
	state := "inactive"
	if active {
		state = "active"
	}
	s.auditJob(ctx, actor, "JOB_TOGGLED", id, "now "+state)
	return active, nil
}

// DeleteJob removes a job no request refers to.
func (s *Service) DeleteJob(ctx context.Context, actor string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: job ID required", ErrInvalidInput)
	}
	job, err := s.Jobs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get job %d: %w", id, err)
	}
	if job == nil {
		return ErrJobNotFound
	}
	n, err := s.Jobs.CountPOsForJob(ctx, job.Name)
	if err != nil {
		return fmt.Errorf("count POs for job %d: %w", id, err)
	}
	if n > 0 {
		return fmt.Errorf("%w: %d PO request(s) are using this job", ErrJobInUse, n)
	}
	if err := s.Jobs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete job %d: %w", id, err)
	}
	s.auditJob(ctx, actor, "JOB_DELETED", id, job.Display())
	return nil
}

// JobDetails is a job and its invoiced requests.
type JobDetails struct {
	JobName  string              `json:"job_name"`
	Invoices []models.JobInvoice `json:"invoices"`
}

// JobDetails lists the invoices filed under a job, newest upload first.
func (s *Service) JobDetails(ctx context.Context, id int64) (*JobDetails, error) {
	job, err := s.Jobs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job %d: %w", id, err)
	}
	if job == nil {
		return nil, ErrJobNotFound
	}
	pos, err := s.POs.ListInvoicedForJob(ctx, job.Name)
	if err != nil {
		return nil, fmt.Errorf("list invoices for job %d: %w", id, err)
	}
	out := &JobDetails{JobName: job.Name, Invoices: make([]models.JobInvoice, 0, len(pos))}
	for _, p := range pos {
		cost, _ := strconv.ParseFloat(p.InvoiceCost, 64)
		out.Invoices = append(out.Invoices, models.JobInvoice{
			POID:          p.ID,
			TechName:      p.TechName,
			Estimated:     p.EstimatedCost,
			InvoiceNumber: p.InvoiceNumber,
			InvoiceCost:   cost,
			Date:          p.InvoiceUploadDate,
			Filename:      p.InvoiceFilename,
			Status:        string(p.Status),
		})
	}
	return out, nil
}

func (s *Service) auditJob(ctx context.Context, actor, action string, id int64, details string) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Log(ctx, actor, action, "job", &id, details); err != nil {
		s.Logger.Warn().Err(err).Str("action", action).Msg("write activity log")
	}
}
