package httpapi

import (
	"net/http"
	"strconv"
)

func (s *Server) manageJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.Purchasing.JobSummaries(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"jobs": jobs})
}

func (s *Server) jobDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		badRequest(w, "invalid job ID")
		return
	}
	d, err := s.Purchasing.JobDetails(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"job_name": d.JobName, "invoices": d.Invoices})
}

func (s *Server) addJob(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	job, err := s.Purchasing.AddJob(r.Context(), principal(r).Name, p.str("job_name"), p.str("year"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, object{"job": job, "message": "Job " + job.Display() + " added"})
}

func (s *Server) editJob(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id, _ := p.int64("job_id")
	year, _ := strconv.Atoi(p.trimmed("year"))
	if err := s.Purchasing.EditJob(r.Context(), principal(r).Name, id, p.str("job_name"), year); err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}

func (s *Server) toggleJob(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id, _ := p.int64("job_id")
	active, err := s.Purchasing.ToggleJob(r.Context(), principal(r).Name, id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, object{"active": active})
}

func (s *Server) deleteJob(w http.ResponseWriter, r *http.Request) {
	p, err := readParams(r)
	if err != nil {
		badRequest(w, "invalid request body")
		return
	}
	id, _ := p.int64("job_id")
	if err := s.Purchasing.DeleteJob(r.Context(), principal(r).Name, id); err != nil {
		fail(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, nil)
}
