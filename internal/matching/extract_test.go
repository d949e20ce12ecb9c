package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poRequestTracker/models"
)

type staticJobs []string

func (s staticJobs) ListActiveNames(context.Context) ([]string, error) { return s, nil }

type fakeAI struct {
	enabled bool
	match   AIMatch
	err     error
	calls   int
}

func (f *fakeAI) Enabled(context.Context) bool { return f.enabled }

func (f *fakeAI) Match(context.Context, string, []string, Candidates) (AIMatch, error) {
	f.calls++
	return f.match, f.err
}

func newExtractor(ai POMatcher) *Extractor {
	return &Extractor{
		Jobs:   staticJobs{"Herons Glen", "Seven Lakes", "Chase Bank"},
		AI:     ai,
		Logger: zerolog.Nop(),
	}
}

var candidates = Candidates{
	9860: {ID: 9860, JobName: "Herons Glen", EstimatedCost: 100},
	4016: {ID: 4016, JobName: "Service"},
	1203: {ID: 1203, JobName: "Chase Bank"},
	5123: {ID: 5123, JobName: "Seven Lakes"},
}

func TestExtract_TableColumn(t *testing.T) {
	text := "INVOICE # 1234567\nORDER # PO #\n55512 9860HERONSGLEN\nTOTAL $1,234.50"
	got := newExtractor(nil).Extract(context.Background(), text, candidates)
	require.NotNil(t, got)
	require.NoError(t, got.Err)
	assert.Equal(t, "1234567", got.InvoiceNumber)
	assert.EqualValues(t, 9860, got.POID)
	assert.Equal(t, models.MatchMethodTable, got.MatchMethod)
	assert.Equal(t, "1234.50", got.Cost)
}

func TestExtract_PatternMatch(t *testing.T) {
	text := "Invoice No: FM10979-3\nPO: 4016\nAmount Due: $45.00"
	got := newExtractor(nil).Extract(context.Background(), text, candidates)
	require.NotNil(t, got)
	assert.Equal(t, "FM10979-3", got.InvoiceNumber)
	assert.EqualValues(t, 4016, got.POID)
	assert.Equal(t, models.MatchMethodPattern, got.MatchMethod)
	assert.Equal(t, "45.00", got.Cost)
}

func TestExtract_DirectSearch(t *testing.T) {
	text := "INVOICE #: 7777777\nShip to Chase Bank lobby, ref 1203\nTOTAL 10.00"
	got := newExtractor(nil).Extract(context.Background(), text, candidates)
	require.NotNil(t, got)
	assert.EqualValues(t, 1203, got.POID)
	assert.Equal(t, models.MatchMethodDirect, got.MatchMethod)
}

func TestExtract_FuzzyMatch(t *testing.T) {
	text := "Delivered to SEVN LAKS site 5123\nInvoice # 9999999"
	got := newExtractor(nil).Extract(context.Background(), text, candidates)
	require.NotNil(t, got)
	assert.Equal(t, "9999999", got.InvoiceNumber)
	assert.EqualValues(t, 5123, got.POID)
	assert.Equal(t, models.MatchMethodFuzzy, got.MatchMethod)
	assert.Equal(t, "0.00", got.Cost)
}

func TestExtract_NoMatchingPO(t *testing.T) {
	got := newExtractor(nil).Extract(context.Background(), "INVOICE # 1234567\nTOTAL 5.00", Candidates{42: {ID: 42, JobName: "Downtown Plaza"}})
	require.NotNil(t, got)
	assert.ErrorIs(t, got.Err, ErrNoMatchingPO)
	assert.Equal(t, "5.00", got.Cost)
	assert.Contains(t, got.Message(), "1234567")
}

func TestExtract_NoInvoiceNumber(t *testing.T) {
	x := newExtractor(nil)
	assert.Nil(t, x.Extract(context.Background(), "", candidates))
	assert.Nil(t, x.Extract(context.Background(), "hello world", candidates))
	assert.Nil(t, x.Extract(context.Background(), "Order # Date\nnothing", candidates))
}

func TestExtract_AIFirst(t *testing.T) {
	text := "INVOICE # 1234567\nORDER # PO #\n55512 9860HERONSGLEN\nTOTAL $1.00"

	ai := &fakeAI{enabled: true, match: AIMatch{POID: 1203, JobName: "Chase Bank", Confidence: 0.95}}
	got := newExtractor(ai).Extract(context.Background(), text, candidates)
	require.NotNil(t, got)
	assert.EqualValues(t, 1203, got.POID)
	assert.Equal(t, models.MatchMethodAI, got.MatchMethod)

	low := &fakeAI{enabled: true, match: AIMatch{POID: 1203, Confidence: 0.5}}
	got = newExtractor(low).Extract(context.Background(), text, candidates)
	assert.EqualValues(t, 9860, got.POID)
	assert.Equal(t, models.MatchMethodTable, got.MatchMethod)

	failing := &fakeAI{enabled: true, err: errors.New("boom")}
	got = newExtractor(failing).Extract(context.Background(), text, candidates)
	assert.EqualValues(t, 9860, got.POID)

	off := &fakeAI{enabled: false}
	newExtractor(off).Extract(context.Background(), text, candidates)
	assert.Zero(t, off.calls)
}

func TestNewCandidates(t *testing.T) {
	c := NewCandidates([]models.PORequest{{ID: 3, JobName: "A"}, {ID: 1, JobName: "B"}})
	assert.Equal(t, []int64{1, 3}, c.IDs())
	assert.Equal(t, "A", c[3].JobName)
}
