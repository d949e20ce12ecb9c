// Package metrics provides Prometheus metrics for the PO tracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Labels stay low-cardinality: no PO ids, usernames or invoice numbers.

var (
	// POSubmittedTotal counts new PO requests by whether a custom number was given.
	POSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "po_tracker_po_submitted_total",
		Help: "Total number of submitted PO requests, by numbering (auto/custom).",
	}, []string{"numbering"})

	// PODecisionTotal counts status transitions.
	PODecisionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "po_tracker_po_decision_total",
		Help: "Total number of PO status transitions, by resulting status and mode (single/bulk/undo).",
	}, []string{"status", "mode"})

	// InvoiceAttachedTotal counts invoices attached to POs by match method.
	InvoiceAttachedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "po_tracker_invoice_attached_total",
		Help: "Total number of invoices attached to POs, by match method.",
	}, []string{"method"})

	// BulkPagesTotal counts bulk upload pages by outcome.
	BulkPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "po_tracker_bulk_pages_total",
		Help: "Total number of bulk upload pages processed, by outcome (matched/no_po/no_invoice).",
	}, []string{"outcome"})

	// AIMatcherCallsTotal counts calls to the AI matcher.
	AIMatcherCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "po_tracker_ai_matcher_calls_total",
		Help: "Total number of AI matcher calls, by result (matched/unmatched/error).",
	}, []string{"result"})

	// PersistentStorage is 1 when DATA_DIR points at a persistent volume.
	PersistentStorage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "po_tracker_persistent_storage",
		Help: "1 when the data directory is on a persistent volume, 0 when ephemeral.",
	})
)

// RecordSubmit increments the submission counter.
func RecordSubmit(custom bool) {
	n := "auto"
	if custom {
		n = "custom"
	}
	POSubmittedTotal.WithLabelValues(n).Inc()
}

// RecordDecision increments the transition counter by n.
func RecordDecision(status, mode string, n int) {
	if n <= 0 {
		return
	}
	PODecisionTotal.WithLabelValues(status, mode).Add(float64(n))
}

// RecordInvoice increments the attached-invoice counter.
func RecordInvoice(method string) {
	if method == "" {
		method = "manual"
	}
	InvoiceAttachedTotal.WithLabelValues(method).Inc()
}

// RecordBulkPage increments the bulk page counter.
func RecordBulkPage(outcome string) {
	BulkPagesTotal.WithLabelValues(outcome).Inc()
}

// RecordAICall increments the AI matcher counter.
func RecordAICall(result string) {
	AIMatcherCallsTotal.WithLabelValues(result).Inc()
}

// SetPersistentStorage sets the storage gauge.
func SetPersistentStorage(persistent bool) {
	if persistent {
		PersistentStorage.Set(1)
		return
	}
	PersistentStorage.Set(0)
}
