package purchasing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poRequestTracker/internal/db"
	"poRequestTracker/internal/storage"
	"poRequestTracker/internal/testutil"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

type recordingNotifier struct{ ids []int64 }

func (r *recordingNotifier) NotifyNewPO(_ context.Context, po *models.PORequest) error {
	r.ids = append(r.ids, po.ID)
	return nil
}

var fixedNow = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T, name string) (*Service, *recordingNotifier) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	require.NoError(t, db.Seed(context.Background(), d, testutil.PlainHash))
	layout := testutil.NewLayout(t)
	n := &recordingNotifier{}
	return &Service{
		POs:      repository.NewPORequestRepository(d),
		Jobs:     repository.NewJobRepository(d),
		Users:    repository.NewUserRepository(d),
		Activity: repository.NewActivityRepository(d),
		Invoices: storage.NewStore(layout.InvoiceDir),
		Notifier: n,
		Logger:   zerolog.Nop(),
		Now:      func() time.Time { return fixedNow },
	}, n
}

func submit(t *testing.T, s *Service, job string, cost float64) *models.PORequest {
	t.Helper()
	res, err := s.Submit(context.Background(), "tech1", SubmitInput{TechName: "Tech One", JobName: job, StoreName: "Ewing", EstimatedCost: cost, Description: "valves"})
	require.NoError(t, err)
	return res.PO
}

func TestSubmit_AutoNumbering(t *testing.T) {
	s, n := newService(t, "svc_submit_auto")
	ctx := context.Background()

	first := submit(t, s, "chase bank", 12)
	assert.EqualValues(t, 1, first.ID)
	assert.Equal(t, "Chase Bank", first.JobName, "canonical spelling")
	assert.Equal(t, models.POStatusPending, first.Status)
	assert.Equal(t, "2025-03-04 10:00:00", first.RequestDate)

	second := submit(t, s, "Seven Lakes", 30)
	assert.EqualValues(t, 2, second.ID)
	assert.Equal(t, []int64{1, 2}, n.ids)

	entries, err := s.Activity.List(ctx, repository.ActivityFilter{Action: models.ActionSubmitted})
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSubmit_Validation(t *testing.T) {
	s, n := newService(t, "svc_submit_invalid")
	ctx := context.Background()

	_, err := s.Submit(ctx, "tech1", SubmitInput{TechName: "Tech One", JobName: "Nowhere"})
	assert.ErrorIs(t, err, ErrInvalidJob)

	_, err = s.Submit(ctx, "tech1", SubmitInput{JobName: "Chase Bank"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Submit(ctx, "tech1", SubmitInput{TechName: "Tech One", JobName: "Chase Bank", EstimatedCost: -1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.Submit(ctx, "tech1", SubmitInput{TechName: "Tech One", JobName: "Chase Bank", CustomPONumber: "12ab"})
	assert.ErrorIs(t, err, ErrInvalidPONumber)

	assert.Empty(t, n.ids)
}

func TestSubmit_CustomNumber(t *testing.T) {
	s, _ := newService(t, "svc_submit_custom")
	ctx := context.Background()
	in := SubmitInput{TechName: "Tech One", JobName: "Seven Lakes", CustomPONumber: " 9860 ", EstimatedCost: 5}

	res, err := s.Submit(ctx, "tech1", in)
	require.NoError(t, err)
	assert.True(t, res.Custom)
	assert.EqualValues(t, 9860, res.PO.ID)
	assert.Empty(t, res.Warning)

	next := submit(t, s, "Seven Lakes", 1)
	assert.EqualValues(t, 9861, next.ID)

	res, err = s.Submit(ctx, "tech1", in)
	require.ErrorIs(t, err, ErrDuplicatePO)
	require.NotNil(t, res)
	assert.Equal(t, "PO #9860 already exists. Creating as #9860-B", res.Warning)
}

func TestDecide(t *testing.T) {
	s, _ := newService(t, "svc_decide")
	ctx := context.Background()
	po := submit(t, s, "Chase Bank", 12)

	_, err := s.Decide(ctx, "office1", po.ID, "cancel", "")
	assert.ErrorIs(t, err, ErrInvalidAction)

	_, err = s.Decide(ctx, "office1", 999, "approve", "")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Decide(ctx, "office1", po.ID, "approve", "ok")
	require.NoError(t, err)
	assert.Equal(t, models.POStatusApproved, got.Status)
	assert.Equal(t, "office1", got.ApprovedBy)
	assert.Equal(t, "ok", got.ApprovalNotes)

	entries, err := s.Activity.List(ctx, repository.ActivityFilter{Action: "APPROVED"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "PO #0001 - Chase Bank - $12.00 - Tech: Tech One - Notes: ok", entries[0].Details)

	got, err = s.Decide(ctx, "office1", po.ID, "deny", "")
	require.NoError(t, err)
	assert.Equal(t, models.POStatusDenied, got.Status)
}

func TestBulkDecide(t *testing.T) {
	s, _ := newService(t, "svc_bulk")
	ctx := context.Background()
	a := submit(t, s, "Chase Bank", 1)
	b := submit(t, s, "Chase Bank", 2)
	c := submit(t, s, "Chase Bank", 3)

	_, err := s.Decide(ctx, "office1", a.ID, "deny", "")
	require.NoError(t, err)

	_, err = s.BulkDecide(ctx, "office1", nil, "approve", "")
	assert.ErrorIs(t, err, ErrNoSelection)
	_, err = s.BulkDecide(ctx, "office1", []int64{b.ID}, "maybe", "")
	assert.ErrorIs(t, err, ErrInvalidAction)

	n, err := s.BulkDecide(ctx, "office1", []int64{a.ID, b.ID, c.ID}, "approve", "batch")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	denied, err := s.POs.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusDenied, denied.Status, "only pending rows change")

	entries, err := s.Activity.List(ctx, repository.ActivityFilter{Action: "BULK_APPROVED"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Bulk approved 2 PO(s): [1, 2, 3] - Notes: batch", entries[0].Details)
	assert.Nil(t, entries[0].TargetID)
}

func TestAttachInvoice(t *testing.T) {
	s, _ := newService(t, "svc_invoice")
	ctx := context.Background()
	po := submit(t, s, "Chase Bank", 12)

	in := InvoiceInput{Number: "INV-1", Cost: "45.5", Filename: "inv 1.pdf", File: strings.NewReader("%PDF")}
	_, err := s.AttachInvoice(ctx, "office1", po.ID, in)
	assert.ErrorIs(t, err, ErrNotApproved)

	_, err = s.Decide(ctx, "office1", po.ID, "approve", "")
	require.NoError(t, err)

	_, err = s.AttachInvoice(ctx, "office1", po.ID, InvoiceInput{Cost: "1"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.AttachInvoice(ctx, "office1", po.ID, InvoiceInput{Number: "X"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = s.AttachInvoice(ctx, "office1", po.ID, InvoiceInput{Number: "X", Cost: "abc"})
	assert.ErrorIs(t, err, ErrInvalidCost)
	_, err = s.AttachInvoice(ctx, "office1", po.ID, InvoiceInput{Number: "X", Cost: "-2"})
	assert.ErrorIs(t, err, ErrInvalidCost)
	_, err = s.AttachInvoice(ctx, "office1", po.ID, InvoiceInput{Number: "X", Cost: "2", Filename: "a.exe", File: strings.NewReader("")})
	assert.ErrorIs(t, err, ErrInvalidFileType)
	_, err = s.AttachInvoice(ctx, "office1", 404, InvoiceInput{Number: "X", Cost: "2"})
	assert.ErrorIs(t, err, ErrNotFound)

	res, err := s.AttachInvoice(ctx, "office1", po.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "PO0001_20250304_100000_inv_1.pdf", res.Filename)
	assert.Equal(t, "45.50", res.InvoiceCost)
	assert.False(t, res.AutoCategorized)
	assert.Equal(t, "Invoice saved successfully for PO #0001", res.Message)
	assert.True(t, s.Invoices.Exists(res.Filename))

	got, err := s.POs.GetByID(ctx, po.ID)
	require.NoError(t, err)
	assert.Equal(t, 45.5, got.EstimatedCost)
	assert.Equal(t, "INV-1", got.InvoiceNumber)
	assert.Equal(t, "N/A", got.InvoiceDate)

	f, err := s.OpenInvoice(res.Filename)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = s.OpenInvoice(models.ManualEntry)
	assert.ErrorIs(t, err, ErrNoInvoiceFile)
	_, err = s.OpenInvoice("../etc/passwd")
	assert.ErrorIs(t, err, ErrFileNotFound)
	_, err = s.OpenInvoice("missing.pdf")
	assert.ErrorIs(t, err, ErrFileNotFound)

	assert.ErrorIs(t, s.UndoApproval(ctx, "office1", po.ID), ErrHasInvoice)

	require.NoError(t, s.DeleteInvoice(ctx, "office1", po.ID))
	assert.False(t, s.Invoices.Exists(res.Filename))
	got, _ = s.POs.GetByID(ctx, po.ID)
	assert.False(t, got.HasInvoice())
	assert.Equal(t, models.POStatusApproved, got.Status)

	require.NoError(t, s.UndoApproval(ctx, "office1", po.ID))
	got, _ = s.POs.GetByID(ctx, po.ID)
	assert.Equal(t, models.POStatusPending, got.Status)
	assert.ErrorIs(t, s.UndoApproval(ctx, "office1", 404), ErrNotFound)
}

func TestAttachInvoice_ServiceAutoCategorize(t *testing.T) {
	s, _ := newService(t, "svc_invoice_service")
	ctx := context.Background()
	_, err := s.AddJob(ctx, "office1", "Service", "2025")
	require.NoError(t, err)

	po := submit(t, s, "service", 80)
	assert.Equal(t, "S0001", po.Number())
	_, err = s.Decide(ctx, "office1", po.ID, "approve", "")
	require.NoError(t, err)

	res, err := s.AttachInvoice(ctx, "office1", po.ID, InvoiceInput{Number: "77", Cost: "75"})
	require.NoError(t, err)
	assert.True(t, res.AutoCategorized)
	assert.Equal(t, models.ManualEntry, res.Filename)
	assert.Equal(t, "Invoice saved successfully for PO #0001 - Auto-categorized as Service", res.Message)

	got, _ := s.POs.GetByID(ctx, po.ID)
	assert.Equal(t, models.ServiceJobName, got.JobName)
	assert.Equal(t, models.ManualEntry, got.InvoiceFilename)

	require.NoError(t, s.DeleteInvoice(ctx, "office1", po.ID), "manual entries have no file to remove")
}

func TestDelete(t *testing.T) {
	s, _ := newService(t, "svc_delete")
	ctx := context.Background()
	po := submit(t, s, "Chase Bank", 12)
	_, err := s.Decide(ctx, "office1", po.ID, "approve", "")
	require.NoError(t, err)
	res, err := s.AttachInvoice(ctx, "office1", po.ID, InvoiceInput{Number: "1", Cost: "1", Filename: "a.png", File: strings.NewReader("png")})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "office1", po.ID))
	assert.False(t, s.Invoices.Exists(res.Filename))
	got, err := s.POs.GetByID(ctx, po.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, s.Delete(ctx, "office1", po.ID), ErrNotFound)
}
