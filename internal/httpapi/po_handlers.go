package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"poRequestTracker/internal/purchasing"
	"poRequestTracker/repository"
)

// Multipart parts beyond this size spill to temporary files.
const multipartMemory = 10 << 20

func (s *Server) getJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.Purchasing.ActiveJobs(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"jobs": jobs})
}

func (s *Server) validateJob(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	name, ok, err := s.Purchasing.ValidateJob(r.Context(), p.str("job_name"))
	if err != nil {
		fail(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, object{"valid": false})
		return
	}
	writeJSON(w, http.StatusOK, object{"valid": true, "correct_name": name})
}

func (s *Server) techDashboard(w http.ResponseWriter, r *http.Request) {
	pending, err := s.Purchasing.TechDashboard(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	jobs, err := s.Purchasing.ActiveJobs(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"username": principal(r).Name, "pending_requests": pending, "jobs": jobs})
}

func (s *Server) submitRequest(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	in := purchasing.SubmitInput{
		TechName:       p.str("tech_name"),
		CustomPONumber: p.str("custom_po_number"),
		JobName:        p.str("job_name"),
		StoreName:      p.str("store_name"),
		Description:    p.str("description"),
	}
	if raw := p.trimmed("estimated_cost"); raw != "" {
		if in.EstimatedCost, err = strconv.ParseFloat(raw, 64); err != nil {
			badRequest(w, "invalid estimated cost")
			return
		}
	}
	res, err := s.Purchasing.Submit(r.Context(), principal(r).Name, in)
	if errors.Is(err, purchasing.ErrDuplicatePO) && res != nil {
		writeJSON(w, http.StatusConflict, object{"success": false, "error": err.Error(), "warning": res.Warning})
		return
	}
	if err != nil {
		fail(w, r, err)
		return
	}
	msg := fmt.Sprintf("PO Request #%04d submitted successfully!", res.PO.ID)
	if res.Custom {
		msg = fmt.Sprintf("PO Request #%04d (CUSTOM) submitted successfully!", res.PO.ID)
	}
	writeOK(w, http.StatusCreated, object{"message": msg, "po_number": res.PO.Number(), "po": res.PO})
}

func (s *Server) officeDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.Purchasing.OfficeDashboard(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*purchasing.OfficeDashboard
	}{true, d})
}

func (s *Server) activityLog(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := s.Purchasing.ActivityLog(r.Context(), repository.ActivityFilter{
		User:   strings.TrimSpace(q.Get("filter_user")),
		Action: strings.TrimSpace(q.Get("filter_action")),
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*purchasing.ActivityView
	}{true, v})
}

func (s *Server) processRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid request ID")
		return
	}
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	po, err := s.Purchasing.Decide(r.Context(), principal(r).Name, id, p.trimmed("action"), p.str("notes"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"message": fmt.Sprintf("Request %s successfully!", po.Status), "po": po})
}

func (s *Server) bulkProcess(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	action := p.trimmed("action")
	n, err := s.Purchasing.BulkDecide(r.Context(), principal(r).Name, p.ids("po_ids"), action, p.str("notes"))
	if err != nil {
		fail(w, r, err)
		return
	}
	verb := "approved"
	if action == "deny" {
		verb = "denied"
	}
	writeOK(w, http.StatusOK, object{"processed": n, "message": fmt.Sprintf("Successfully %s %d PO(s)", verb, n)})
}

func (s *Server) uploadInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid PO ID")
		return
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		fail(w, r, err)
		return
	}
	in := purchasing.InvoiceInput{
		Number: r.FormValue("invoice_number"),
		Cost:   r.FormValue("invoice_cost"),
	}
	if f, hdr, err := r.FormFile("invoice"); err == nil {
		defer f.Close()
		if hdr.Filename != "" {
			in.Filename, in.File = hdr.Filename, f
		}
	}
	res, err := s.Purchasing.AttachInvoice(r.Context(), principal(r).Name, id, in)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*purchasing.InvoiceResult
	}{true, res})
}

// requestID reads "request_id" from the body.
func requestID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return 0, false
	}
	id, ok := p.int64("request_id")
	if !ok {
		badRequest(w, "No request ID provided")
		return 0, false
	}
	return id, true
}

func (s *Server) deleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	if err := s.Purchasing.Delete(r.Context(), principal(r).Name, id); err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	if err := s.Purchasing.DeleteInvoice(r.Context(), principal(r).Name, id); err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"message": "Invoice deleted, PO moved back to Approved"})
}

func (s *Server) undoApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}
	if err := s.Purchasing.UndoApproval(r.Context(), principal(r).Name, id); err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"message": "PO moved back to Pending"})
}

func (s *Server) viewInvoice(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	f, err := s.Purchasing.OpenInvoice(name)
	if err != nil {
		fail(w, r, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		fail(w, r, err)
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), io.ReadSeeker(f))
}
