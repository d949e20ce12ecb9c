package bulk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poRequestTracker/internal/matching"
	"poRequestTracker/internal/storage"
	"poRequestTracker/internal/testutil"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

type fakeReader struct {
	texts []string
	err   error
}

func (f fakeReader) PageTexts(string) ([]string, error) { return f.texts, f.err }

type fakeWriter struct{}

func (fakeWriter) WritePages(_ string, pages []int, w io.Writer) error {
	parts := make([]string, len(pages))
	for i, p := range pages {
		parts[i] = fmt.Sprint(p)
	}
	_, err := io.WriteString(w, "pages="+strings.Join(parts, ","))
	return err
}

func setup(t *testing.T, name string, texts []string) (*Processor, *repository.PORequestRepository, *storage.Store) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	repo := repository.NewPORequestRepository(d)
	ctx := context.Background()

	po := &models.PORequest{ID: 9860, TechUsername: "tech1", TechName: "Tech One", JobName: "Herons Glen", StoreName: "Ewing", EstimatedCost: 900, Description: "heads"}
	_, err := repo.Create(ctx, po)
	require.NoError(t, err)
	ok, err := repo.UpdateDecision(ctx, 9860, repository.Decision{Status: models.POStatusApproved, ApprovedBy: "office1", At: time.Now()})
	require.NoError(t, err)
	require.True(t, ok)

	layout := testutil.NewLayout(t)
	store := storage.NewStore(layout.InvoiceDir)
	p := &Processor{
		Extractor: &matching.Extractor{Logger: zerolog.Nop()},
		POs:       repo,
		Invoices:  store,
		Reader:    fakeReader{texts: texts},
		Writer:    fakeWriter{},
		Logger:    zerolog.Nop(),
		Now:       func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) },
	}
	return p, repo, store
}

func TestProcess_GroupsMatchedPages(t *testing.T) {
	texts := []string{
		"INVOICE # 1234567\nORDER # PO #\n55512 9860HERONSGLEN\nTOTAL $1,234.50",
		"INVOICE # 1234567\nPO # 9860\nTOTAL $1,234.50",
		"INVOICE # 7654321\nTOTAL 20.00",
		"cover sheet",
	}
	p, repo, store := setup(t, "bulk_group", texts)
	ts := time.Date(2025, 3, 4, 9, 30, 15, 0, time.UTC)

	res, err := p.Process(context.Background(), "ignored.pdf", ts)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 4, res.Processed)
	assert.Equal(t, 1, res.Matched)

	require.Len(t, res.Details, 1)
	m := res.Details[0]
	assert.Equal(t, "1-2", m.Page)
	assert.Equal(t, 2, m.Pages)
	assert.EqualValues(t, 9860, m.PONumber)
	assert.Equal(t, "Herons Glen", m.JobName)
	assert.Equal(t, 900.0, m.EstimatedCost)
	assert.Equal(t, "1234.50", m.Cost)
	assert.Equal(t, models.MatchMethodTable, m.MatchMethod)
	assert.Equal(t, "PO9860_20250304_093015_INV1234567.pdf", m.Filename)

	body, err := os.ReadFile(filepath.Join(store.Dir(), m.Filename))
	require.NoError(t, err)
	assert.Equal(t, "pages=1,2", string(body))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Page)
	assert.Equal(t, "7654321", res.Errors[0].InvoiceNumber)
	assert.Equal(t, "ERROR_NO_PO_20250304_093015_page3_7654321.pdf", res.Errors[0].Filename)
	assert.True(t, store.Exists(res.Errors[0].Filename))

	require.Len(t, res.Unmatched, 1)
	assert.Equal(t, 4, res.Unmatched[0].Page)
	assert.True(t, store.Exists("UNMATCHED_20250304_093015_page4.pdf"))

	assert.Contains(t, res.Message, "1 invoice(s) found but NO MATCHING PO!")

	po, err := repo.GetByID(context.Background(), 9860)
	require.NoError(t, err)
	assert.Equal(t, m.Filename, po.InvoiceFilename)
	assert.Equal(t, "1234567", po.InvoiceNumber)
	assert.Equal(t, "1234.50", po.InvoiceCost)
	assert.Equal(t, 1234.5, po.EstimatedCost)
	assert.Equal(t, models.MatchMethodTable, po.MatchMethod)
	assert.Equal(t, "2025-03-04 10:00:00", po.InvoiceUploadDate)
}

func TestProcess_AllClean(t *testing.T) {
	p, _, _ := setup(t, "bulk_clean", []string{"nothing here"})
	res, err := p.Process(context.Background(), "x.pdf", time.Now())
	require.NoError(t, err)
	assert.Zero(t, res.Matched)
	assert.Equal(t, "Processed 1 pages. Successfully matched 0 invoices.", res.Message)
	assert.NotNil(t, res.Errors)
	assert.NotNil(t, res.Details)
}

func TestProcess_ReaderError(t *testing.T) {
	p, _, _ := setup(t, "bulk_err", nil)
	p.Reader = fakeReader{err: errors.New("corrupt")}
	_, err := p.Process(context.Background(), "x.pdf", time.Now())
	require.Error(t, err)
}

func TestPDFReader_RejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not.pdf")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0o644))
	_, err := PDFReader{}.PageTexts(path)
	require.Error(t, err)
}

func TestPDFWriter_NoPages(t *testing.T) {
	require.Error(t, PDFWriter{}.WritePages("x.pdf", nil, io.Discard))
}

func TestPageRange(t *testing.T) {
	assert.Equal(t, "3", pageRange([]int{3}))
	assert.Equal(t, "2-5", pageRange([]int{2, 3, 5}))
}
