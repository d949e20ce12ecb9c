package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"poRequestTracker/internal/accounts"
	"poRequestTracker/internal/log"
	"poRequestTracker/internal/purchasing"
)

type object = map[string]any

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOK writes fields with "success": true.
func writeOK(w http.ResponseWriter, code int, fields object) {
	if fields == nil {
		fields = object{}
	}
	fields["success"] = true
	writeJSON(w, code, fields)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, object{"success": false, "error": msg})
}

var errStatus = []struct {
	err  error
	code int
}{
	{purchasing.ErrNotFound, http.StatusNotFound},
	{purchasing.ErrJobNotFound, http.StatusNotFound},
	{purchasing.ErrFileNotFound, http.StatusNotFound},
	{purchasing.ErrNoInvoiceFile, http.StatusNotFound},
	{accounts.ErrUserNotFound, http.StatusNotFound},
	{purchasing.ErrNotApproved, http.StatusConflict},
	{purchasing.ErrHasInvoice, http.StatusConflict},
	{purchasing.ErrDuplicatePO, http.StatusConflict},
	{purchasing.ErrJobExists, http.StatusConflict},
	{purchasing.ErrJobInUse, http.StatusConflict},
	{accounts.ErrUsernameTaken, http.StatusConflict},
	{accounts.ErrEmailTaken, http.StatusConflict},
	{accounts.ErrSelfDelete, http.StatusConflict},
	{accounts.ErrInvalidCredentials, http.StatusUnauthorized},
	{accounts.ErrInvalidSession, http.StatusUnauthorized},
	{accounts.ErrTokenExpired, http.StatusGone},
	{accounts.ErrMailUnavailable, http.StatusServiceUnavailable},
	{purchasing.ErrInvalidJob, http.StatusBadRequest},
	{purchasing.ErrInvalidPONumber, http.StatusBadRequest},
	{purchasing.ErrInvalidAction, http.StatusBadRequest},
	{purchasing.ErrNoSelection, http.StatusBadRequest},
	{purchasing.ErrInvalidInput, http.StatusBadRequest},
	{purchasing.ErrInvalidCost, http.StatusBadRequest},
	{purchasing.ErrInvalidFileType, http.StatusBadRequest},
	{accounts.ErrMissingFields, http.StatusBadRequest},
	{accounts.ErrPasswordMismatch, http.StatusBadRequest},
	{accounts.ErrWeakPassword, http.StatusBadRequest},
	{accounts.ErrInvalidEmail, http.StatusBadRequest},
	{accounts.ErrInvalidRole, http.StatusBadRequest},
	{accounts.ErrInvalidToken, http.StatusBadRequest},
}

// fail maps domain errors to statuses. Anything else is logged and reported as 500.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	for _, e := range errStatus {
		if errors.Is(err, e.err) {
			writeError(w, e.code, err.Error())
			return
		}
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	log.FromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal server error")
}
