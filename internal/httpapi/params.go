package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// params reads request fields from either a JSON object or a form body.
type params struct {
	form url.Values
	json map[string]any
}

func readParams(r *http.Request) (params, error) {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		m := map[string]any{}
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return params{}, err
		}
		return params{json: m}, nil
	}
	if err := r.ParseForm(); err != nil {
		return params{}, err
	}
	return params{form: r.Form}, nil
}

func scalar(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

func (p params) str(key string) string {
	if p.json != nil {
		return scalar(p.json[key])
	}
	return p.form.Get(key)
}

func (p params) trimmed(key string) string {
	return strings.TrimSpace(p.str(key))
}

func (p params) int64(key string) (int64, bool) {
	n, err := strconv.ParseInt(p.trimmed(key), 10, 64)
	return n, err == nil
}

func (p params) bool(key string) bool {
	switch strings.ToLower(p.trimmed(key)) {
	case "true", "on", "1", "yes":
		return true
	}
	return false
}

// ids reads a list of IDs from a JSON array or repeated form values.
// Entries that are not integers are dropped.
func (p params) ids(key string) []int64 {
	var raw []string
	if p.json != nil {
		if list, ok := p.json[key].([]any); ok {
			for _, v := range list {
				raw = append(raw, scalar(v))
			}
		}
	} else {
		raw = p.form[key]
	}
	out := make([]int64, 0, len(raw))
	for _, s := range raw {
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func badRequest(w http.ResponseWriter, msg string) {
	writeError(w, http.StatusBadRequest, msg)
}

func pathID(r *http.Request, name string) (int64, bool) {
	n, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return n, err == nil && n > 0
}
