// Package bulk splits a multi-invoice PDF into per-PO invoice files.
package bulk

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"poRequestTracker/internal/matching"
	"poRequestTracker/internal/metrics"
	"poRequestTracker/internal/storage"
	"poRequestTracker/models"
	"poRequestTracker/repository"
)

// Extractor reads invoice data from one page of text.
type Extractor interface {
	Extract(ctx context.Context, text string, pos matching.Candidates) *matching.Extraction
}

// InvoiceTarget is the PO storage the processor reads candidates from and
// attaches invoices to.
type InvoiceTarget interface {
	ListApprovedWithoutInvoice(ctx context.Context) ([]models.PORequest, error)
	SetInvoice(ctx context.Context, id int64, inv repository.Invoice) error
}

// PageError is a page carrying an invoice number that no PO matched.
type PageError struct {
	Page          int    `json:"page"`
	InvoiceNumber string `json:"invoice_number"`
	Cost          string `json:"cost"`
	Error         string `json:"error"`
	Message       string `json:"message"`
	TextPreview   string `json:"text_preview"`
	Filename      string `json:"filename"`
}

// UnmatchedPage is a page without an invoice number.
type UnmatchedPage struct {
	Page        int    `json:"page"`
	TextPreview string `json:"text_preview"`
	Filename    string `json:"filename"`
}

// Match is one invoice attached to a PO.
type Match struct {
	Page          string  `json:"page"`
	PONumber      int64   `json:"po_number"`
	JobName       string  `json:"job_name"`
	EstimatedCost float64 `json:"estimated_cost"`
	InvoiceNumber string  `json:"invoice_number"`
	Cost          string  `json:"cost"`
	MatchMethod   string  `json:"match_method"`
	Filename      string  `json:"filename"`
	Status        string  `json:"status"`
	Pages         int     `json:"pages"`
}

// Result summarises one bulk upload.
type Result struct {
	Success   bool            `json:"success"`
	Processed int             `json:"processed"`
	Matched   int             `json:"matched"`
	Unmatched []UnmatchedPage `json:"unmatched"`
	Errors    []PageError     `json:"errors"`
	Details   []Match         `json:"details"`
	Message   string          `json:"message"`
}

// Processor turns a bulk PDF into stored invoices.
type Processor struct {
	Extractor Extractor
	POs       InvoiceTarget
	Invoices  *storage.Store
	Reader    PageReader
	Writer    PageWriter
	Logger    zerolog.Logger
	Now       func() time.Time
}

// NewProcessor wires a processor with the PDF reader and writer.
func NewProcessor(x Extractor, pos InvoiceTarget, invoices *storage.Store, logger zerolog.Logger) *Processor {
	return &Processor{
		Extractor: x,
		POs:       pos,
		Invoices:  invoices,
		Reader:    PDFReader{},
		Writer:    PDFWriter{},
		Logger:    logger,
		Now:       time.Now,
	}
}

type group struct {
	pages []int
	data  *matching.Extraction
}

// Process reads every page of pdfPath, groups matched pages by invoice number
// and attaches one PDF per group to its PO. Unmatched pages are kept in the
// invoice directory for manual review. ts names every file written.
func (p *Processor) Process(ctx context.Context, pdfPath string, ts time.Time) (*Result, error) {
	pos, err := p.POs.ListApprovedWithoutInvoice(ctx)
	if err != nil {
		return nil, fmt.Errorf("list approved POs: %w", err)
	}
	cands := matching.NewCandidates(pos)
	p.Logger.Info().Ints64("candidates", cands.IDs()).Msg("approved POs without invoices")

	texts, err := p.Reader.PageTexts(pdfPath)
	if err != nil {
		return nil, err
	}

	stamp := ts.Format(models.FileTimestampLayout)
	res := &Result{Success: true, Unmatched: []UnmatchedPage{}, Errors: []PageError{}, Details: []Match{}}
	groups := map[string]*group{}
	var order []string

	for i, text := range texts {
		page := i + 1
		res.Processed++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		ex := p.Extractor.Extract(ctx, text, cands)
		switch {
		case ex != nil && ex.Err == nil:
			g, ok := groups[ex.InvoiceNumber]
			if !ok {
				g = &group{data: ex}
				groups[ex.InvoiceNumber] = g
				order = append(order, ex.InvoiceNumber)
			}
			g.pages = append(g.pages, page)
		case ex != nil:
			name := fmt.Sprintf("ERROR_NO_PO_%s_page%d_%s.pdf", stamp, page, ex.InvoiceNumber)
			if err := p.writePages(pdfPath, []int{page}, name); err != nil {
				return nil, err
			}
			metrics.RecordBulkPage("no_po")
			res.Errors = append(res.Errors, PageError{
				Page:          page,
				InvoiceNumber: ex.InvoiceNumber,
				Cost:          ex.Cost,
				Error:         "NO MATCHING PO FOUND",
				Message:       ex.Message(),
				TextPreview:   preview(text, 300),
				Filename:      name,
			})
		default:
			name := fmt.Sprintf("UNMATCHED_%s_page%d.pdf", stamp, page)
			if err := p.writePages(pdfPath, []int{page}, name); err != nil {
				return nil, err
			}
			metrics.RecordBulkPage("no_invoice")
			res.Unmatched = append(res.Unmatched, UnmatchedPage{Page: page, TextPreview: preview(text, 200), Filename: name})
		}
	}

	for _, inv := range order {
		g := groups[inv]
		d := g.data
		name := fmt.Sprintf("PO%04d_%s_INV%s.pdf", d.POID, stamp, inv)
		if err := p.writePages(pdfPath, g.pages, name); err != nil {
			return nil, err
		}
		cost, _ := strconv.ParseFloat(d.Cost, 64)
		method := d.MatchMethod
		if method == "" {
			method = models.MatchMethodUnknown
		}
		err := p.POs.SetInvoice(ctx, d.POID, repository.Invoice{
			Filename:    name,
			Number:      inv,
			Cost:        cost,
			MatchMethod: method,
			UploadedAt:  p.now(),
		})
		if err != nil {
			return nil, fmt.Errorf("attach invoice %s to PO %d: %w", inv, d.POID, err)
		}
		res.Matched++
		metrics.RecordInvoice(method)
		for range g.pages {
			metrics.RecordBulkPage("matched")
		}

		c := cands[d.POID]
		job := c.JobName
		if job == "" {
			job = "Unknown"
		}
		res.Details = append(res.Details, Match{
			Page:          pageRange(g.pages),
			PONumber:      d.POID,
			JobName:       job,
			EstimatedCost: c.EstimatedCost,
			InvoiceNumber: inv,
			Cost:          d.Cost,
			MatchMethod:   method,
			Filename:      name,
			Status:        "matched",
			Pages:         len(g.pages),
		})
		p.Logger.Info().Int64("po_id", d.POID).Str("invoice_number", inv).Int("pages", len(g.pages)).Str("method", method).Msg("invoice attached")
	}

	if n := len(res.Errors); n > 0 {
		res.Message = fmt.Sprintf("Processed %d pages. Matched %d invoices. %d invoice(s) found but NO MATCHING PO!", res.Processed, res.Matched, n)
	} else {
		res.Message = fmt.Sprintf("Processed %d pages. Successfully matched %d invoices.", res.Processed, res.Matched)
	}
	return res, nil
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Processor) writePages(src string, pages []int, name string) error {
	var buf bytes.Buffer
	if err := p.Writer.WritePages(src, pages, &buf); err != nil {
		return err
	}
	if _, err := p.Invoices.Save(name, &buf); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func pageRange(pages []int) string {
	if len(pages) == 1 {
		return strconv.Itoa(pages[0])
	}
	return fmt.Sprintf("%d-%d", pages[0], pages[len(pages)-1])
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
