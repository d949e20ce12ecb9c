package models

import (
	"fmt"
	"strings"
)

// POStatus represents where a purchase-order request is in the approval flow.
type POStatus string

const (
	POStatusPending  POStatus = "pending"
	POStatusApproved POStatus = "approved"
	POStatusDenied   POStatus = "denied"
)

// ManualEntry is stored as the invoice filename when an invoice was keyed in without a file.
const ManualEntry = "MANUAL_ENTRY"

// Match methods recorded for bulk-uploaded invoices.
const (
	MatchMethodAI      = "Claude AI"
	MatchMethodTable   = "Table Column"
	MatchMethodPattern = "Pattern Match"
	MatchMethodDirect  = "Direct Search"
	MatchMethodFuzzy   = "Fuzzy Match"
	MatchMethodUnknown = "Unknown"
)

// ServiceJobName is the job invoices with S-prefixed PO numbers are filed under.
const ServiceJobName = "Service"

// Layouts for the text timestamps stored in SQLite and used in filenames.
const (
	TimestampLayout     = "2006-01-02 15:04:05"
	DateLayout          = "2006-01-02"
	FileTimestampLayout = "20060102_150405"
)

// PORequest is a technician's purchase-order request.
// Invoice fields are empty until an invoice is attached.
type PORequest struct {
	ID                int64    `db:"id" json:"id"`
	TechUsername      string   `db:"tech_username" json:"tech_username"`
	TechName          string   `db:"tech_name" json:"tech_name"`
	JobName           string   `db:"job_name" json:"job_name"`
	StoreName         string   `db:"store_name" json:"store_name"`
	EstimatedCost     float64  `db:"estimated_cost" json:"estimated_cost"`
	Description       string   `db:"description" json:"description"`
	Status            POStatus `db:"status" json:"status"`
	RequestDate       string   `db:"request_date" json:"request_date"`
	ApprovalDate      string   `db:"approval_date" json:"approval_date,omitempty"`
	ApprovalNotes     string   `db:"approval_notes" json:"approval_notes,omitempty"`
	ApprovedBy        string   `db:"approved_by" json:"approved_by,omitempty"`
	InvoiceFilename   string   `db:"invoice_filename" json:"invoice_filename,omitempty"`
	InvoiceNumber     string   `db:"invoice_number" json:"invoice_number,omitempty"`
	InvoiceCost       string   `db:"invoice_cost" json:"invoice_cost,omitempty"`
	InvoiceDate       string   `db:"invoice_date" json:"invoice_date,omitempty"`
	InvoiceUploadDate string   `db:"invoice_upload_date" json:"invoice_upload_date,omitempty"`
	MatchMethod       string   `db:"match_method" json:"match_method,omitempty"`
}

// HasInvoice reports whether an invoice (file or manual entry) is attached.
func (p *PORequest) HasInvoice() bool {
	return p.InvoiceFilename != ""
}

// Number returns the display PO number for this request.
func (p *PORequest) Number() string {
	return FormatPONumber(p.ID, p.JobName)
}

// FormatPONumber zero-pads id to four digits, prefixing "S" for Service jobs.
func FormatPONumber(id int64, jobName string) string {
	if strings.EqualFold(jobName, "service") {
		return fmt.Sprintf("S%04d", id)
	}
	return fmt.Sprintf("%04d", id)
}

// POStats aggregates counts shown on the office dashboard.
type POStats struct {
	Pending     int     `json:"pending"`
	Approved    int     `json:"approved"`
	Denied      int     `json:"denied"`
	WithInvoice int     `json:"with_invoice"`
	TotalValue  float64 `json:"total_value"`
}
