// Package http exposes the finance service as a JSON API.
//
// This file implements helpers for reading path, query and body values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"fintrack/internal/stats"
	"fintrack/internal/storage"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// requestError is a malformed request (bad JSON, non-numeric id). It maps to 400.
type requestError struct {
	msg string
}

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &requestError{msg: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a single JSON object into v. Unknown fields are rejected.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid JSON body: %v", err)
	}
	if dec.More() {
		return badRequest("invalid JSON body: unexpected data after object")
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return id, nil
}

// ParseStatsQuery reads year, month and mode. A missing or unparsable year
// stays 0 (empty report); month and mode are normalized by the engine.
func ParseStatsQuery(query url.Values) stats.Query {
	q := stats.Query{
		Year:  queryInt(query, "year"),
		Month: queryInt(query, "month"),
		Mode:  stats.Mode(strings.ToLower(strings.TrimSpace(query.Get("mode")))),
	}
	return q.Normalize()
}

// ParseTransactionFilter reads year, month, saved and limit.
func ParseTransactionFilter(query url.Values) (storage.TransactionFilter, error) {
	f := storage.TransactionFilter{
		Year:  queryInt(query, "year"),
		Month: queryInt(query, "month"),
		Limit: queryInt(query, "limit"),
	}
	if f.Month < 0 || f.Month > 12 {
		return f, badRequest("invalid month %d", f.Month)
	}
	if f.Limit < 0 {
		return f, badRequest("invalid limit %d", f.Limit)
	}
	if v := strings.TrimSpace(query.Get("saved")); v != "" {
		saved, err := strconv.ParseBool(v)
		if err != nil {
			return f, badRequest("invalid saved flag %q", v)
		}
		f.SavedOnly = saved
	}
	return f, nil
}

// parseKind maps ?kind=income|expense to the category filter.
func parseKind(query url.Values) (*bool, error) {
	switch strings.ToLower(strings.TrimSpace(query.Get("kind"))) {
	case "":
		return nil, nil
	case "income":
		v := true
		return &v, nil
	case "expense":
		v := false
		return &v, nil
	default:
		return nil, badRequest("invalid kind %q: must be income or expense", query.Get("kind"))
	}
}

func queryInt(query url.Values, key string) int {
	if v := strings.TrimSpace(query.Get(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
