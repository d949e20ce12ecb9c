// Package purchasing implements the PO request workflow: submission,
// office decisions, invoice attachment and job management.
package purchasing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"poRequestTracker/internal/metrics"
	"poRequestTracker/internal/storage"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

// Notifier announces new requests.
type Notifier interface {
	NotifyNewPO(ctx context.Context, po *models.PORequest) error
}

// Service holds the repositories the workflow runs on.
type Service struct {
	POs      *repository.PORequestRepository
	Jobs     *repository.JobRepository
	Users    *repository.UserRepository
	Activity *repository.ActivityRepository
	Invoices *storage.Store
	Notifier Notifier // optional
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) audit(ctx context.Context, user, action string, id *int64, details string) {
	if s.Activity == nil {
		return
	}
	if err := s.Activity.Log(ctx, user, action, "po_request", id, details); err != nil {
		s.Logger.Warn().Err(err).Str("action", action).Msg("write activity log")
	}
}

func summary(po *models.PORequest) string {
	return fmt.Sprintf("PO #%s - %s - $%.2f - Tech: %s", po.Number(), po.JobName, po.EstimatedCost, po.TechName)
}

// SubmitInput is a technician's new request.
type SubmitInput struct {
	TechName       string
	CustomPONumber string
	JobName        string
	StoreName      string
	EstimatedCost  float64
	Description    string
}

// SubmitResult is the stored request plus an optional warning for the submitter.
type SubmitResult struct {
	PO      *models.PORequest
	Custom  bool
	Warning string
}

// Submit validates the job and stores a pending request under the next free
// number, or under CustomPONumber when given.
func (s *Service) Submit(ctx context.Context, username string, in SubmitInput) (*SubmitResult, error) {
	in.TechName = strings.TrimSpace(in.TechName)
	in.JobName = strings.TrimSpace(in.JobName)
	in.CustomPONumber = strings.TrimSpace(in.CustomPONumber)
	if in.TechName == "" || in.JobName == "" {
		return nil, fmt.Errorf("%w: tech name and job name are required", ErrInvalidInput)
	}
	if in.EstimatedCost < 0 {
		return nil, fmt.Errorf("%w: estimated cost cannot be negative", ErrInvalidInput)
	}

	job, err := s.Jobs.FindActiveByName(ctx, in.JobName)
	if err != nil {
		return nil, fmt.Errorf("find job: %w", err)
	}
	if job == nil {
		return nil, ErrInvalidJob
	}

	po := &models.PORequest{
		TechUsername:  username,
		TechName:      in.TechName,
		JobName:       job.Name,
		StoreName:     strings.TrimSpace(in.StoreName),
		EstimatedCost: in.EstimatedCost,
		Description:   strings.TrimSpace(in.Description),
		RequestDate:   s.now().Format(models.TimestampLayout),
	}
	res := &SubmitResult{}

	if in.CustomPONumber != "" {
		id, err := strconv.ParseInt(in.CustomPONumber, 10, 64)
		if err != nil || id <= 0 {
			return nil, ErrInvalidPONumber
		}
		res.Custom = true
		n, err := s.POs.CountByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("count PO %d: %w", id, err)
		}
		if n > 0 {
			res.Warning = fmt.Sprintf("PO #%04d already exists. Creating as #%04d-%c", id, id, rune('A'+n))
		}
		po.ID = id
		created, err := s.POs.Create(ctx, po)
		if errors.Is(err, repository.ErrDuplicate) {
			return res, fmt.Errorf("%w: #%04d", ErrDuplicatePO, id)
		}
		if err != nil {
			return nil, fmt.Errorf("create PO: %w", err)
		}
		res.PO = created
	} else {
		created, err := s.createNext(ctx, po)
		if err != nil {
			return nil, err
		}
		res.PO = created
	}

	metrics.RecordSubmit(res.Custom)
	s.audit(ctx, username, models.ActionSubmitted, &res.PO.ID, summary(res.PO))
	s.Logger.Info().Int64("po_id", res.PO.ID).Str("username", username).Str("job", res.PO.JobName).Msg("PO request submitted")

	if s.Notifier != nil {
		if err := s.Notifier.NotifyNewPO(ctx, res.PO); err != nil {
			s.Logger.Warn().Err(err).Int64("po_id", res.PO.ID).Msg("new PO notification failed")
		}
	}
	return res, nil
}

// createNext inserts po as max(id)+1, retrying when a concurrent submit took the number.
func (s *Service) createNext(ctx context.Context, po *models.PORequest) (*models.PORequest, error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		maxID, err := s.POs.MaxID(ctx)
		if err != nil {
			return nil, fmt.Errorf("next PO number: %w", err)
		}
		po.ID = maxID + 1
		created, err := s.POs.Create(ctx, po)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create PO: %w", err)
		}
		return created, nil
	}
	return nil, fmt.Errorf("%w: could not allocate a PO number", ErrDuplicatePO)
}

func statusFor(action string) (models.POStatus, error) {
	switch action {
	case "approve":
		return models.POStatusApproved, nil
	case "deny":
		return models.POStatusDenied, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidAction, action)
}

// Decide approves or denies a request.
func (s *Service) Decide(ctx context.Context, actor string, id int64, action, notes string) (*models.PORequest, error) {
	status, err := statusFor(action)
	if err != nil {
		return nil, err
	}
	po, err := s.POs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get PO %d: %w", id, err)
	}
	if po == nil {
		return nil, ErrNotFound
	}
	ok, err := s.POs.UpdateDecision(ctx, id, repository.Decision{Status: status, Notes: notes, ApprovedBy: actor, At: s.now()})
	if err != nil {
		return nil, fmt.Errorf("update PO %d: %w", id, err)
	}
	if !ok {
		return nil, ErrNotFound
	}
	metrics.RecordDecision(string(status), "single", 1)

	details := summary(po)
	if notes != "" {
		details += " - Notes: " + notes
	}
	s.audit(ctx, actor, strings.ToUpper(string(status)), &id, details)

	return s.POs.GetByID(ctx, id)
}

// BulkDecide applies action to every pending request in ids and returns how
// many changed. Requests that are no longer pending are skipped.
func (s *Service) BulkDecide(ctx context.Context, actor string, ids []int64, action, notes string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoSelection
	}
	status, err := statusFor(action)
	if err != nil {
		return 0, err
	}
	d := repository.Decision{Status: status, Notes: notes, ApprovedBy: actor, At: s.now()}
	processed := 0
	for _, id := range ids {
		ok, err := s.POs.UpdateDecisionIfPending(ctx, id, d)
		if err != nil {
			return processed, fmt.Errorf("update PO %d: %w", id, err)
		}
		if ok {
			processed++
		}
	}
	metrics.RecordDecision(string(status), "bulk", processed)

	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = strconv.FormatInt(id, 10)
	}
	details := fmt.Sprintf("Bulk %s %d PO(s): [%s]", status, processed, strings.Join(strs, ", "))
	if notes != "" {
		details += " - Notes: " + notes
	}
	s.audit(ctx, actor, "BULK_"+strings.ToUpper(string(status)), nil, details)
	return processed, nil
}

// InvoiceInput is an invoice keyed in by the office, optionally with a file.
type InvoiceInput struct {
	Number   string
	Cost     string
	Filename string    // original upload name; empty for manual entry
	File     io.Reader // read only when Filename is set
}

// InvoiceResult reports what was stored.
type InvoiceResult struct {
	Message         string  `json:"message"`
	InvoiceNumber   string  `json:"invoice_number"`
	InvoiceCost     string  `json:"invoice_cost"`
	Cost            float64 `json:"-"`
	Filename        string  `json:"filename"`
	AutoCategorized bool    `json:"auto_categorized"`
}

// AttachInvoice stores an invoice against an approved request. The invoice
// cost replaces the estimate, and requests numbered S#### move to the
// Service job.
func (s *Service) AttachInvoice(ctx context.Context, actor string, id int64, in InvoiceInput) (*InvoiceResult, error) {
	number := strings.TrimSpace(in.Number)
	rawCost := strings.TrimSpace(in.Cost)
	if number == "" {
		return nil, fmt.Errorf("%w: invoice number is required", ErrInvalidInput)
	}
	if rawCost == "" {
		return nil, fmt.Errorf("%w: invoice cost is required", ErrInvalidInput)
	}
	cost, err := strconv.ParseFloat(rawCost, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCost, rawCost)
	}
	if cost < 0 {
		return nil, fmt.Errorf("%w: cannot be negative", ErrInvalidCost)
	}
	if in.Filename != "" && !storage.AllowedInvoiceFile(in.Filename) {
		return nil, ErrInvalidFileType
	}

	po, err := s.POs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get PO %d: %w", id, err)
	}
	if po == nil {
		return nil, ErrNotFound
	}
	if po.Status != models.POStatusApproved {
		return nil, ErrNotApproved
	}

	now := s.now()
	filename := models.ManualEntry
	if in.Filename != "" && in.File != nil {
		filename = storage.InvoiceFilename(id, now, in.Filename)
		if _, err := s.Invoices.Save(filename, in.File); err != nil {
			return nil, fmt.Errorf("save invoice file: %w", err)
		}
	}

	inv := repository.Invoice{Filename: filename, Number: number, Cost: cost, UploadedAt: now}
	auto := strings.HasPrefix(strings.ToUpper(po.Number()), "S")
	if auto {
		inv.JobName = models.ServiceJobName
	}
	if err := s.POs.SetInvoice(ctx, id, inv); err != nil {
		return nil, fmt.Errorf("attach invoice to PO %d: %w", id, err)
	}
	metrics.RecordInvoice("")

	res := &InvoiceResult{
		Message:         fmt.Sprintf("Invoice saved successfully for PO #%04d", id),
		InvoiceNumber:   number,
		InvoiceCost:     fmt.Sprintf("%.2f", cost),
		Cost:            cost,
		Filename:        filename,
		AutoCategorized: auto,
	}
	if auto {
		res.Message += " - Auto-categorized as Service"
	}
	s.audit(ctx, actor, "INVOICE_ATTACHED", &id, fmt.Sprintf("PO #%s - Invoice %s - $%s", po.Number(), number, res.InvoiceCost))
	return res, nil
}

func (s *Service) removeInvoiceFile(name string) {
	if name == "" || name == models.ManualEntry || s.Invoices == nil {
		return
	}
	if err := s.Invoices.Remove(name); err != nil {
		s.Logger.Warn().Err(err).Str("file", name).Msg("remove invoice file")
	}
}

// DeleteInvoice clears the invoice and removes its file, leaving the request approved.
func (s *Service) DeleteInvoice(ctx context.Context, actor string, id int64) error {
	po, err := s.POs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get PO %d: %w", id, err)
	}
	if po == nil {
		return ErrNotFound
	}
	s.removeInvoiceFile(po.InvoiceFilename)
	if err := s.POs.ClearInvoice(ctx, id); err != nil {
		return fmt.Errorf("clear invoice on PO %d: %w", id, err)
	}
	s.audit(ctx, actor, "INVOICE_DELETED", &id, fmt.Sprintf("PO #%s - Invoice %s", po.Number(), po.InvoiceNumber))
	return nil
}

// UndoApproval moves a request without an invoice back to pending.
func (s *Service) UndoApproval(ctx context.Context, actor string, id int64) error {
	po, err := s.POs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get PO %d: %w", id, err)
	}
	if po == nil {
		return ErrNotFound
	}
	if po.HasInvoice() {
		return ErrHasInvoice
	}
	if err := s.POs.ResetToPending(ctx, id); err != nil {
		return fmt.Errorf("reset PO %d: %w", id, err)
	}
	metrics.RecordDecision(string(models.POStatusPending), "undo", 1)
	s.audit(ctx, actor, "UNDO_APPROVAL", &id, summary(po))
	return nil
}

// Delete removes a request and its invoice file.
func (s *Service) Delete(ctx context.Context, actor string, id int64) error {
	po, err := s.POs.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get PO %d: %w", id, err)
	}
	if po == nil {
		return ErrNotFound
	}
	s.removeInvoiceFile(po.InvoiceFilename)
	if err := s.POs.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete PO %d: %w", id, err)
	}
	s.audit(ctx, actor, "DELETED", &id, summary(po))
	return nil
}

// OpenInvoice opens a stored invoice file for viewing.
func (s *Service) OpenInvoice(name string) (*os.File, error) {
	if name == models.ManualEntry {
		return nil, ErrNoInvoiceFile
	}
	f, err := s.Invoices.Open(name)
	if errors.Is(err, storage.ErrInvalidName) || errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return f, err
}
