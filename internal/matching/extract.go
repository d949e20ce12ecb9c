package matching

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"poRequestTracker/models"
)

// ErrNoMatchingPO marks an invoice whose PO is unknown, not approved or already invoiced.
var ErrNoMatchingPO = errors.New("no matching PO found")

// MinAIConfidence is the lowest AI confidence accepted as a match.
const MinAIConfidence = 0.6

// Candidate is an approved PO still waiting for its invoice.
type Candidate struct {
	ID            int64   `json:"id"`
	TechName      string  `json:"tech_name"`
	JobName       string  `json:"job_name"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// Candidates indexes candidates by PO id.
type Candidates map[int64]Candidate

// NewCandidates indexes approved, uninvoiced requests.
func NewCandidates(pos []models.PORequest) Candidates {
	out := make(Candidates, len(pos))
	for _, p := range pos {
		out[p.ID] = Candidate{ID: p.ID, TechName: p.TechName, JobName: p.JobName, EstimatedCost: p.EstimatedCost}
	}
	return out
}

// IDs returns the candidate ids in ascending order.
func (c Candidates) IDs() []int64 {
	ids := make([]int64, 0, len(c))
	for id := range c {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Extraction is what was read from one invoice page.
type Extraction struct {
	InvoiceNumber string
	POID          int64
	Cost          string // two decimals, "0.00" when no total was found
	MatchMethod   string
	// Err is ErrNoMatchingPO when an invoice number was found but no PO matched.
	Err error
}

// Message describes an unmatched extraction.
func (e *Extraction) Message() string {
	if e.Err == nil {
		return ""
	}
	return fmt.Sprintf("Invoice %s - PO already has invoice or not approved", e.InvoiceNumber)
}

// AIMatch is the AI matcher's verdict.
type AIMatch struct {
	POID       int64
	JobName    string
	Confidence float64
}

// POMatcher is the AI-backed first pass of PO matching.
type POMatcher interface {
	Enabled(ctx context.Context) bool
	Match(ctx context.Context, text string, jobs []string, pos Candidates) (AIMatch, error)
}

// JobNames lists active job names.
type JobNames interface {
	ListActiveNames(ctx context.Context) ([]string, error)
}

// Extractor reads invoice number, PO and total from invoice text.
type Extractor struct {
	Jobs   JobNames
	AI     POMatcher // optional
	Logger zerolog.Logger
}

type labelled struct {
	re   *regexp.Regexp
	desc string
}

func mustLabelled(pairs ...string) []labelled {
	out := make([]labelled, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, labelled{re: regexp.MustCompile(`(?i)` + pairs[i]), desc: pairs[i+1]})
	}
	return out
}

var (
	invoicePrimary = mustLabelled(
		`CUSTOMER\s*#\s*INVOICE\s*#[\s\S]*?(\d{5,}[A-Z0-9\-]*)`, "Customer # Invoice #",
		`INVOICE\s*#[\s:]*(\d{5,}[A-Z0-9\-]*)`, "Invoice #",
	)
	invoiceFallback = mustLabelled(
		`INVOICE\s*#\s*:?\s*([A-Z0-9\-]+)`, "Invoice #",
		`INVOICE\s*(?:NO|NUM|NUMBER)\s*[:\s]*([A-Z0-9\-]+)`, "Invoice No/Num",
		`Invoice\s+No\s*[:\s]*([A-Z0-9\-]+)`, "Invoice No",
		`Order\s*#\s*:?\s*([A-Z0-9\-]+)`, "Order #",
		`Order\s*(?:NO|NUM|NUMBER)\s*:?\s*([A-Z0-9\-]+)`, "Order No/Num",
		`Sales\s*Order\s*#?\s*:?\s*([A-Z0-9\-]+)`, "Sales Order",
		`Work\s*Order\s*#?\s*:?\s*([A-Z0-9\-]+)`, "Work Order",
		`Reference\s*#?\s*:?\s*([A-Z0-9\-]+)`, "Reference #",
		`Ticket\s*#?\s*:?\s*([A-Z0-9\-]+)`, "Ticket #",
		`Document\s*#?\s*:?\s*([A-Z0-9\-]+)`, "Document #",
		`Receipt\s*#?\s*:?\s*([A-Z0-9\-]+)`, "Receipt #",
		`Confirmation\s*#?\s*:?\s*([A-Z0-9\-]+)`, "Confirmation #",
		`Transaction\s*(?:ID|#)?\s*[:\s]*([A-Z0-9\-]+)`, "Transaction ID",
	)
	poHeaders = mustLabelled(
		`(ORDER\s*#\s*)(PO\s*#)`, "ORDER # / PO #",
		`(Purchase\s+Order[/\s]*Job\s+Name)`, "Purchase Order/Job Name",
		`(PO\s*Number)`, "PO Number",
		`(PO\s*#)`, "PO #",
		`(Customer\s*PO)`, "Customer PO",
		`(Job\s*#)`, "Job #",
		`(Job\s*Name)`, "Job Name",
		`(Job\s*Number)`, "Job Number",
		`(Work\s*Order)`, "Work Order",
		`(Project\s*#)`, "Project #",
		`(Reference)`, "Reference",
	)
	columnNumbers = mustLabelled(
		`S-(\d{4,})`, "S-XXXX",
		`\b(\d{4,})[A-Za-z]+`, "XXXXJOBNAME",
		`:\s*(\d{4,})\s+[A-Za-z]`, ": XXXX JOBNAME",
		`\b(\d{4,})\s+[A-Za-z]{3,}`, "XXXX JOBNAME",
		`\b(\d{4,})\b`, "XXXX",
	)
	poPatterns = mustLabelled(
		`PO\s*#?\s*[:\s]*S-(\d{4,})`, "PO: S-XXXX",
		`PO\s*#?\s*[:\s]*(\d{4,})[A-Za-z]+`, "PO: XXXXABC",
		`PO\s*#?\s*[:\s]*(\d{4,})\s+[A-Za-z]`, "PO: XXXX JOBNAME",
		`PO\s*#?\s*[:\s]*(\d{4,})`, "PO: XXXX",
		`Customer\s*PO\s*#?\s*[:\s]*(\d{4,})`, "Customer PO",
		`Job\s*#\s*[:\s]*(\d{4,})`, "Job #",
		`Job\s*(?:Name|Number)\s*[:\s]*(\d{4,})`, "Job Name/Number",
		`Project\s*#?\s*[:\s]*(\d{4,})`, "Project #",
		`Work\s*Order\s*#?\s*[:\s]*(\d{4,})`, "Work Order",
		`Purchase\s+Order[/\s]+Job\s+Name[\s\S]*?(\d{4,})[A-Za-z]+`, "Purchase Order/Job Name: XXXXJOBNAME",
		`PO\s*Number[:\s]+(\d{4,})\s+[A-Za-z]`, "PO Number: XXXX JOBNAME",
		`PO\s*Number[:\s]+(\d{4,})`, "PO Number: XXXX",
		`\b(\d{4,})[A-Za-z]{3,}`, "XXXXJOBNAME",
		`\b(\d{4,})\s+(?:SOMERVILLE|HERONS?\s*GLEN|SERVICE)`, "XXXX known job name",
	)
	costPatterns = mustLabelled(
		`TOTAL[:\s]*\$?\s*([0-9,]+\.\d{2})`, "Total",
		`Amount\s+Due[:\s]*\$?\s*([0-9,]+\.\d{2})`, "Amount Due",
		`Grand\s+Total[:\s]*\$?\s*([0-9,]+\.\d{2})`, "Grand Total",
	)
	nearbyNumber = regexp.MustCompile(`\b(\d{3,5})\b`)
)

// Extract reads one invoice page. It returns nil when no invoice number is
// present. When the invoice number is found but no candidate PO matches, the
// returned Extraction has Err set to ErrNoMatchingPO.
func (x *Extractor) Extract(ctx context.Context, text string, pos Candidates) *Extraction {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	inv, via := findInvoiceNumber(text)
	if inv == "" {
		x.Logger.Debug().Msg("no invoice number found")
		return nil
	}
	x.Logger.Debug().Str("invoice_number", inv).Str("pattern", via).Msg("invoice number found")
	out := &Extraction{InvoiceNumber: inv, Cost: findCost(text)}

	var jobs []string
	if x.Jobs != nil && len(pos) > 0 {
		var err error
		if jobs, err = x.Jobs.ListActiveNames(ctx); err != nil {
			x.Logger.Warn().Err(err).Msg("list active jobs")
		}
	}

	id, method := x.findPO(ctx, text, pos, jobs)
	if id == 0 {
		out.Err = ErrNoMatchingPO
		x.Logger.Info().Str("invoice_number", inv).Ints64("candidates", pos.IDs()).Msg("invoice has no matching PO")
		return out
	}
	out.POID = id
	out.MatchMethod = method
	x.Logger.Info().Str("invoice_number", inv).Int64("po_id", id).Str("method", method).Msg("invoice matched")
	return out
}

func findInvoiceNumber(text string) (number, pattern string) {
	for _, p := range invoicePrimary {
		if m := p.re.FindStringSubmatch(text); m != nil {
			if c := strings.TrimSpace(m[1]); len(c) >= 5 {
				return c, p.desc
			}
		}
	}
	for _, p := range invoiceFallback {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		c := strings.TrimSpace(m[1])
		switch strings.ToLower(c) {
		case "date", "time", "page":
			continue
		}
		if len(c) >= 5 {
			return c, p.desc
		}
	}
	return "", ""
}

func findCost(text string) string {
	for _, p := range costPatterns {
		all := p.re.FindAllStringSubmatch(text, -1)
		if len(all) == 0 {
			continue
		}
		raw := strings.ReplaceAll(all[len(all)-1][1], ",", "")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			return fmt.Sprintf("%.2f", v)
		}
	}
	return "0.00"
}

func (x *Extractor) findPO(ctx context.Context, text string, pos Candidates, jobs []string) (int64, string) {
	if len(pos) > 0 && x.AI != nil && x.AI.Enabled(ctx) {
		m, err := x.AI.Match(ctx, text, jobs, pos)
		switch {
		case err != nil:
			x.Logger.Warn().Err(err).Msg("AI matcher failed, using pattern matching")
		case m.POID != 0 && m.Confidence >= MinAIConfidence:
			return m.POID, models.MatchMethodAI
		case m.POID != 0:
			x.Logger.Info().Int64("po_id", m.POID).Float64("confidence", m.Confidence).Msg("AI match below confidence threshold")
		}
	}
	if id := matchTableColumn(text, pos); id != 0 {
		return id, models.MatchMethodTable
	}
	if id := matchPatterns(text, pos); id != 0 {
		return id, models.MatchMethodPattern
	}
	if id := matchDirect(text, pos); id != 0 {
		return id, models.MatchMethodDirect
	}
	if id := matchFuzzy(text, pos, jobs); id != 0 {
		return id, models.MatchMethodFuzzy
	}
	return 0, ""
}

func candidateID(s string, pos Candidates) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	if _, ok := pos[n]; ok {
		return n
	}
	return 0
}

// matchTableColumn looks on the header line and the line after it for a PO number.
func matchTableColumn(text string, pos Candidates) int64 {
	for _, h := range poHeaders {
		loc := h.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		lines := strings.SplitN(text[loc[0]:], "\n", 3)
		if len(lines) > 2 {
			lines = lines[:2]
		}
		for _, line := range lines {
			for _, np := range columnNumbers {
				for _, m := range np.re.FindAllStringSubmatch(line, -1) {
					if id := candidateID(m[1], pos); id != 0 {
						return id
					}
				}
			}
		}
	}
	return 0
}

func matchPatterns(text string, pos Candidates) int64 {
	for _, p := range poPatterns {
		for _, m := range p.re.FindAllStringSubmatch(text, -1) {
			if id := candidateID(m[1], pos); id != 0 {
				return id
			}
		}
	}
	return 0
}

// matchDirect searches the text for each candidate id and accepts it when the
// job name is adjacent, a job word appears anywhere, or the id follows a PO label.
func matchDirect(text string, pos Candidates) int64 {
	upper := strings.ToUpper(text)
	for _, id := range pos.IDs() {
		idStr := strconv.FormatInt(id, 10)
		if !strings.Contains(text, idStr) {
			continue
		}
		job := strings.ToUpper(pos[id].JobName)
		jobNoSpaces := strings.NewReplacer(" ", "", "-", "", "_", "").Replace(job)
		concat := regexp.MustCompile(regexp.QuoteMeta(idStr) + `\s*` + regexp.QuoteMeta(jobNoSpaces))
		if concat.MatchString(upper) {
			return id
		}
		for _, part := range strings.Fields(strings.NewReplacer("-", " ", "_", " ").Replace(job)) {
			if len(part) >= 3 && strings.Contains(upper, part) {
				return id
			}
		}
		ctxRe := regexp.MustCompile(`(?i)(?:PO|Purchase\s*Order|Order|Job)[^0-9]*` + regexp.QuoteMeta(idStr))
		if ctxRe.MatchString(text) {
			return id
		}
	}
	return 0
}

// matchFuzzy finds active job names in the text and looks for a candidate PO of
// that job nearby, then anywhere in the text.
func matchFuzzy(text string, pos Candidates, jobs []string) int64 {
	if len(pos) == 0 {
		return 0
	}
	for _, job := range jobs {
		hit, ok := FindJobName(text, job, 0.75)
		if !ok {
			continue
		}
		start := max(0, hit.Pos-100)
		end := min(len(text), hit.Pos+len(job)+100)
		if start >= end {
			continue
		}
		for _, m := range nearbyNumber.FindAllStringSubmatch(text[start:end], -1) {
			id := candidateID(m[1], pos)
			if id != 0 && FuzzyScore(pos[id].JobName, job) >= 0.75 {
				return id
			}
		}
	}
	for _, job := range jobs {
		if _, ok := FindJobName(text, job, 0.70); !ok {
			continue
		}
		for _, id := range pos.IDs() {
			if FuzzyScore(pos[id].JobName, job) < 0.75 {
				continue
			}
			if strings.Contains(text, strconv.FormatInt(id, 10)) {
				return id
			}
		}
	}
	return 0
}
