package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"poRequestTracker/models"
)

// JobRepository stores job sites.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new JobRepository.
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `id, job_name, year, created_date, active`

// Create inserts an active job. Names are unique case-insensitively.
func (r *JobRepository) Create(ctx context.Context, name string, year int) (*models.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	created := time.Now().Format(models.DateLayout)
	res, err := r.db.ExecContext(ctx, `INSERT INTO jobs (job_name, year, created_date) VALUES (?,?,?)`, name, year, created)
	if err != nil {
		return nil, wrapConstraint(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.Job{ID: id, Name: name, Year: year, CreatedDate: created, Active: true}, nil
}

func (r *JobRepository) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
}

// FindActiveByName returns the active job whose name matches case-insensitively.
func (r *JobRepository) FindActiveByName(ctx context.Context, name string) (*models.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanJob(r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE LOWER(job_name) = LOWER(?) AND active = 1`, name))
}

// ListActive returns active jobs, newest year first then by name.
func (r *JobRepository) ListActive(ctx context.Context) ([]models.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE active = 1 ORDER BY year DESC, job_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

// ListActiveNames returns the names of active jobs.
func (r *JobRepository) ListActiveNames(ctx context.Context) ([]string, error) {
	jobs, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.Name
	}
	return names, nil
}

// ListSummaries returns every job with invoice and estimate totals, active jobs first.
func (r *JobRepository) ListSummaries(ctx context.Context) ([]models.JobSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT j.id, j.job_name, j.year, j.created_date, j.active,
       COALESCE(SUM(CASE WHEN p.invoice_cost IS NOT NULL THEN CAST(p.invoice_cost AS REAL) ELSE 0 END), 0),
       COUNT(CASE WHEN p.invoice_filename IS NOT NULL THEN 1 END),
       COALESCE(SUM(p.estimated_cost), 0),
       COUNT(p.id)
FROM jobs j
LEFT JOIN po_requests p ON j.job_name = p.job_name
GROUP BY j.id, j.job_name, j.year, j.created_date, j.active
ORDER BY j.active DESC, j.year DESC, j.job_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.JobSummary
	for rows.Next() {
		var s models.JobSummary
		var created sql.NullString
		var active int
		if err := rows.Scan(&s.ID, &s.Name, &s.Year, &created, &active,
			&s.TotalInvoiced, &s.InvoiceCount, &s.TotalEstimated, &s.POCount); err != nil {
			return nil, err
		}
		s.CreatedDate = created.String
		s.Active = active == 1
		out = append(out, s)
	}
	return out, rows.Err()
}

// Update renames a job and changes its year.
func (r *JobRepository) Update(ctx context.Context, id int64, name string, year int) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE jobs SET job_name = ?, year = ? WHERE id = ?`, name, year, id)
	return wrapConstraint(err)
}

// ToggleActive flips the active flag and returns the new value.
// found is false when no job has the id.
func (r *JobRepository) ToggleActive(ctx context.Context, id int64) (active bool, found bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var cur int
	if err := r.db.QueryRowContext(ctx, `SELECT active FROM jobs WHERE id = ?`, id).Scan(&cur); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}
		return false, false, err
	}
	next := 1 - cur
	if _, err := r.db.ExecContext(ctx, `UPDATE jobs SET active = ? WHERE id = ?`, next, id); err != nil {
		return false, true, err
	}
	return next == 1, true, nil
}

func (r *JobRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	return err
}

// CountPOsForJob counts requests filed under jobName.
func (r *JobRepository) CountPOsForJob(ctx context.Context, jobName string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM po_requests WHERE job_name = ?`, jobName).Scan(&n)
	return n, err
}

// CountActive returns the number of active jobs.
func (r *JobRepository) CountActive(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs WHERE active = 1`).Scan(&n)
	return n, err
}

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	var created sql.NullString
	var active int
	if err := row.Scan(&j.ID, &j.Name, &j.Year, &created, &active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	j.CreatedDate = created.String
	j.Active = active == 1
	return &j, nil
}
