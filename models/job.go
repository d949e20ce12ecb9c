package models

import "fmt"

// Job is a customer job site that PO requests are raised against.
type Job struct {
	ID          int64  `db:"id" json:"id"`
	Name        string `db:"job_name" json:"name"`
	Year        int    `db:"year" json:"year"`
	CreatedDate string `db:"created_date" json:"created_date"`
	Active      bool   `db:"active" json:"active"`
}

// Display renders the job as shown in pick lists, e.g. "Chase Bank (2024)".
func (j *Job) Display() string {
	return fmt.Sprintf("%s (%d)", j.Name, j.Year)
}

// JobSummary is a job with invoice and estimate totals across its PO requests.
type JobSummary struct {
	Job
	TotalInvoiced  float64 `json:"total_invoiced"`
	InvoiceCount   int     `json:"invoice_count"`
	TotalEstimated float64 `json:"total_estimated"`
	POCount        int     `json:"po_count"`
}

// JobInvoice is one invoiced PO listed under a job.
type JobInvoice struct {
	POID          int64   `json:"po_id"`
	TechName      string  `json:"tech_name"`
	Estimated     float64 `json:"estimated"`
	InvoiceNumber string  `json:"invoice_number"`
	InvoiceCost   float64 `json:"invoice_cost"`
	Date          string  `json:"date"`
	Filename      string  `json:"filename"`
	Status        string  `json:"status"`
}
