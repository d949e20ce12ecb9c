package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"poRequestTracker/models"
)

// PORequestRepository stores purchase-order requests.
type PORequestRepository struct {
	db *sql.DB
}

// NewPORequestRepository creates a new PORequestRepository.
func NewPORequestRepository(db *sql.DB) *PORequestRepository {
	return &PORequestRepository{db: db}
}

const poColumns = `id, tech_username, tech_name, job_name, store_name, estimated_cost, description, status,
request_date, approval_date, approval_notes, approved_by, invoice_filename, invoice_number, invoice_cost,
invoice_date, invoice_upload_date, match_method`

// Create inserts a pending request. A zero ID lets SQLite assign the next id;
// a non-zero ID is inserted as given and fails if it is already taken.
func (r *PORequestRepository) Create(ctx context.Context, p *models.PORequest) (*models.PORequest, error) {
	if p == nil {
		return nil, errors.New("po request is nil")
	}
	if p.RequestDate == "" {
		p.RequestDate = time.Now().Format(models.TimestampLayout)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var id any
	if p.ID > 0 {
		id = p.ID
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO po_requests
(id, tech_username, tech_name, job_name, store_name, estimated_cost, description, status, request_date)
VALUES (?,?,?,?,?,?,?,'pending',?)`,
		id, p.TechUsername, p.TechName, p.JobName, nullString(p.StoreName), p.EstimatedCost, nullString(p.Description), p.RequestDate)
	if err != nil {
		return nil, wrapConstraint(err)
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	out, err := r.GetByID(ctx, newID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("created po request not found: id=%d", newID)
	}
	return out, nil
}

// GetByID fetches a request by its ID.
func (r *PORequestRepository) GetByID(ctx context.Context, id int64) (*models.PORequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return scanPO(r.db.QueryRowContext(ctx, `SELECT `+poColumns+` FROM po_requests WHERE id = ?`, id))
}

// ListByStatus returns requests with the given status, newest id first.
func (r *PORequestRepository) ListByStatus(ctx context.Context, status models.POStatus) ([]models.PORequest, error) {
	return r.list(ctx, `WHERE status = ? ORDER BY id DESC`, string(status))
}

// ListApprovedWithoutInvoice returns approved requests still waiting for an invoice.
func (r *PORequestRepository) ListApprovedWithoutInvoice(ctx context.Context) ([]models.PORequest, error) {
	return r.list(ctx, `WHERE status = 'approved' AND (invoice_filename IS NULL OR invoice_filename = '') ORDER BY id DESC`)
}

// ListInvoiced returns approved requests that have an invoice attached.
func (r *PORequestRepository) ListInvoiced(ctx context.Context) ([]models.PORequest, error) {
	return r.list(ctx, `WHERE status = 'approved' AND invoice_filename IS NOT NULL AND invoice_filename <> '' ORDER BY id DESC`)
}

// ListInvoicedForJob returns requests under jobName with an invoice, newest upload first.
func (r *PORequestRepository) ListInvoicedForJob(ctx context.Context, jobName string) ([]models.PORequest, error) {
	return r.list(ctx, `WHERE job_name = ? AND invoice_filename IS NOT NULL ORDER BY invoice_upload_date DESC`, jobName)
}

// ListAll returns every request ordered by id.
func (r *PORequestRepository) ListAll(ctx context.Context) ([]models.PORequest, error) {
	return r.list(ctx, `ORDER BY id`)
}

func (r *PORequestRepository) list(ctx context.Context, tail string, args ...any) ([]models.PORequest, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT `+poColumns+` FROM po_requests `+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PORequest
	for rows.Next() {
		p, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// MaxID returns the highest request id, or 0 when the table is empty.
func (r *PORequestRepository) MaxID(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var id sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(id) FROM po_requests`).Scan(&id); err != nil {
		return 0, err
	}
	return id.Int64, nil
}

// CountByID returns how many rows use id (0 or 1).
func (r *PORequestRepository) CountByID(ctx context.Context, id int64) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM po_requests WHERE id = ?`, id).Scan(&n)
	return n, err
}

// Decision is the outcome recorded when an office user approves or denies a request.
type Decision struct {
	Status     models.POStatus
	Notes      string
	ApprovedBy string
	At         time.Time
}

// UpdateDecision records d on the request regardless of its current status.
// It reports whether a row was updated.
func (r *PORequestRepository) UpdateDecision(ctx context.Context, id int64, d Decision) (bool, error) {
	return r.updateDecision(ctx, id, d, false)
}

// UpdateDecisionIfPending records d only when the request is still pending.
func (r *PORequestRepository) UpdateDecisionIfPending(ctx context.Context, id int64, d Decision) (bool, error) {
	return r.updateDecision(ctx, id, d, true)
}

func (r *PORequestRepository) updateDecision(ctx context.Context, id int64, d Decision, pendingOnly bool) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	q := `UPDATE po_requests SET status = ?, approval_date = ?, approval_notes = ?, approved_by = ? WHERE id = ?`
	if pendingOnly {
		q += ` AND status = 'pending'`
	}
	res, err := r.db.ExecContext(ctx, q, string(d.Status), d.At.Format(models.TimestampLayout), d.Notes, d.ApprovedBy, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ResetToPending clears the decision fields and returns the request to pending.
func (r *PORequestRepository) ResetToPending(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE po_requests SET status = 'pending', approval_date = NULL, approval_notes = NULL, approved_by = NULL WHERE id = ?`, id)
	return err
}

// Invoice is the set of invoice fields attached to a request.
type Invoice struct {
	Filename    string
	Number      string
	Cost        float64
	MatchMethod string
	// JobName, when set, recategorises the request.
	JobName    string
	UploadedAt time.Time
}

// SetInvoice attaches inv and replaces the estimated cost with the invoice cost.
func (r *PORequestRepository) SetInvoice(ctx context.Context, id int64, inv Invoice) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	sets := []string{
		"invoice_filename = ?", "invoice_number = ?", "invoice_cost = ?",
		"invoice_date = 'N/A'", "invoice_upload_date = ?", "estimated_cost = ?",
	}
	args := []any{inv.Filename, inv.Number, fmt.Sprintf("%.2f", inv.Cost), inv.UploadedAt.Format(models.TimestampLayout), inv.Cost}
	if inv.MatchMethod != "" {
		sets = append(sets, "match_method = ?")
		args = append(args, inv.MatchMethod)
	}
	if inv.JobName != "" {
		sets = append(sets, "job_name = ?")
		args = append(args, inv.JobName)
	}
	args = append(args, id)
	_, err := r.db.ExecContext(ctx, `UPDATE po_requests SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	return err
}

// ClearInvoice removes all invoice fields, leaving the decision in place.
func (r *PORequestRepository) ClearInvoice(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE po_requests SET invoice_filename = NULL, invoice_number = NULL,
invoice_cost = NULL, invoice_date = NULL, invoice_upload_date = NULL, match_method = NULL WHERE id = ?`, id)
	return err
}

func (r *PORequestRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `DELETE FROM po_requests WHERE id = ?`, id)
	return err
}

// Stats returns dashboard counts. TotalValue is the sum of pending estimates.
func (r *PORequestRepository) Stats(ctx context.Context) (models.POStats, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var s models.POStats
	var total sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT
COUNT(CASE WHEN status = 'pending' THEN 1 END),
SUM(CASE WHEN status = 'pending' THEN estimated_cost END),
COUNT(CASE WHEN status = 'approved' THEN 1 END),
COUNT(CASE WHEN status = 'denied' THEN 1 END),
COUNT(invoice_filename)
FROM po_requests`).Scan(&s.Pending, &total, &s.Approved, &s.Denied, &s.WithInvoice)
	if err != nil {
		return s, err
	}
	s.TotalValue = total.Float64
	return s, nil
}

// Count returns the total number of requests.
func (r *PORequestRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM po_requests`).Scan(&n)
	return n, err
}

// MatchMethodCount is the number of invoices matched by one method.
type MatchMethodCount struct {
	Method string `json:"method"`
	Count  int    `json:"count"`
}

// MatchMethodStats counts invoices by match method, most used first.
func (r *PORequestRepository) MatchMethodStats(ctx context.Context) ([]MatchMethodCount, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `SELECT match_method, COUNT(*) FROM po_requests
WHERE match_method IS NOT NULL AND match_method <> '' GROUP BY match_method ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MatchMethodCount
	for rows.Next() {
		var m MatchMethodCount
		if err := rows.Scan(&m.Method, &m.Count); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanPO(row rowScanner) (*models.PORequest, error) {
	var p models.PORequest
	var status string
	var store, desc, apDate, apNotes, apBy, invFile, invNum, invCost, invDate, invUp, method sql.NullString
	err := row.Scan(&p.ID, &p.TechUsername, &p.TechName, &p.JobName, &store, &p.EstimatedCost, &desc, &status,
		&p.RequestDate, &apDate, &apNotes, &apBy, &invFile, &invNum, &invCost, &invDate, &invUp, &method)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.Status = models.POStatus(status)
	p.StoreName = store.String
	p.Description = desc.String
	p.ApprovalDate = apDate.String
	p.ApprovalNotes = apNotes.String
	p.ApprovedBy = apBy.String
	p.InvoiceFilename = invFile.String
	p.InvoiceNumber = invNum.String
	p.InvoiceCost = invCost.String
	p.InvoiceDate = invDate.String
	p.InvoiceUploadDate = invUp.String
	p.MatchMethod = method.String
	return &p, nil
}
