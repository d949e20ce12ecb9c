package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poRequestTracker/internal/testutil"
	"poRequestTracker/models"
)

func newPO(job string, cost float64) *models.PORequest {
	return &models.PORequest{TechUsername: "tech1", TechName: "Tech One", JobName: job, StoreName: "Ewing", EstimatedCost: cost, Description: "valves"}
}

func TestPORequestRepository_CreateAndDecide(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "porepo_decide")
	repo := NewPORequestRepository(d)
	ctx := context.Background()

	maxID, err := repo.MaxID(ctx)
	require.NoError(t, err)
	assert.Zero(t, maxID)

	p, err := repo.Create(ctx, newPO("Chase Bank", 12.5))
	require.NoError(t, err)
	assert.Equal(t, models.POStatusPending, p.Status)
	assert.NotEmpty(t, p.RequestDate)

	explicit := newPO("Seven Lakes", 30)
	explicit.ID = 9864
	p2, err := repo.Create(ctx, explicit)
	require.NoError(t, err)
	assert.EqualValues(t, 9864, p2.ID)

	dup := newPO("Seven Lakes", 1)
	dup.ID = 9864
	_, err = repo.Create(ctx, dup)
	require.ErrorIs(t, err, ErrDuplicate)

	n, err := repo.CountByID(ctx, 9864)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	maxID, err = repo.MaxID(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 9864, maxID)

	now := time.Now()
	ok, err := repo.UpdateDecision(ctx, p.ID, Decision{Status: models.POStatusApproved, Notes: "ok", ApprovedBy: "office1", At: now})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateDecisionIfPending(ctx, p.ID, Decision{Status: models.POStatusDenied, ApprovedBy: "office1", At: now})
	require.NoError(t, err)
	assert.False(t, ok, "already approved")

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.POStatusApproved, got.Status)
	assert.Equal(t, "office1", got.ApprovedBy)

	require.NoError(t, repo.ResetToPending(ctx, p.ID))
	got, _ = repo.GetByID(ctx, p.ID)
	assert.Equal(t, models.POStatusPending, got.Status)
	assert.Empty(t, got.ApprovedBy)
	assert.Empty(t, got.ApprovalDate)

	missing, err := repo.GetByID(ctx, 777)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPORequestRepository_InvoicesAndStats(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "porepo_invoice")
	repo := NewPORequestRepository(d)
	ctx := context.Background()
	now := time.Now()

	a, err := repo.Create(ctx, newPO("Chase Bank", 10))
	require.NoError(t, err)
	b, err := repo.Create(ctx, newPO("Chase Bank", 20))
	require.NoError(t, err)
	c, err := repo.Create(ctx, newPO("Seven Lakes", 5))
	require.NoError(t, err)

	for _, id := range []int64{a.ID, b.ID} {
		_, err := repo.UpdateDecision(ctx, id, Decision{Status: models.POStatusApproved, ApprovedBy: "o", At: now})
		require.NoError(t, err)
	}

	require.NoError(t, repo.SetInvoice(ctx, a.ID, Invoice{Filename: "PO0001_x.pdf", Number: "INV12345", Cost: 11.456, MatchMethod: models.MatchMethodTable, UploadedAt: now}))
	got, _ := repo.GetByID(ctx, a.ID)
	assert.Equal(t, "11.46", got.InvoiceCost)
	assert.InDelta(t, 11.456, got.EstimatedCost, 0.0001)
	assert.Equal(t, "N/A", got.InvoiceDate)
	assert.Equal(t, models.MatchMethodTable, got.MatchMethod)

	waiting, err := repo.ListApprovedWithoutInvoice(ctx)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, b.ID, waiting[0].ID)

	invoiced, err := repo.ListInvoiced(ctx)
	require.NoError(t, err)
	require.Len(t, invoiced, 1)

	forJob, err := repo.ListInvoicedForJob(ctx, "Chase Bank")
	require.NoError(t, err)
	assert.Len(t, forJob, 1)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.POStats{Pending: 1, Approved: 2, Denied: 0, WithInvoice: 1, TotalValue: 5}, stats)

	methods, err := repo.MatchMethodStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, []MatchMethodCount{{Method: models.MatchMethodTable, Count: 1}}, methods)

	require.NoError(t, repo.SetInvoice(ctx, b.ID, Invoice{Filename: models.ManualEntry, Number: "S1", Cost: 3, JobName: models.ServiceJobName, UploadedAt: now}))
	got, _ = repo.GetByID(ctx, b.ID)
	assert.Equal(t, models.ServiceJobName, got.JobName)

	require.NoError(t, repo.ClearInvoice(ctx, a.ID))
	got, _ = repo.GetByID(ctx, a.ID)
	assert.False(t, got.HasInvoice())
	assert.Equal(t, models.POStatusApproved, got.Status)

	require.NoError(t, repo.Delete(ctx, c.ID))
	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := repo.ListByStatus(ctx, models.POStatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
