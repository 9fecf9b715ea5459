package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	minTextLength = 10
	maxListItems  = 100
)

// payload holds a request body decoded lazily field by field. Fields with
// the wrong type or out of range fall back to their defaults instead of
// failing the request.
type payload map[string]json.RawMessage

func decodePayload(r *http.Request) (payload, *APIError) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrTooLarge(fmt.Sprintf("limit is %d bytes", tooLarge.Limit))
		}
		return nil, ErrBadRequest("could not read request body")
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrBadRequest("request body is empty")
	}
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, ErrBadRequest("request body must be a JSON object")
	}
	if len(p) == 0 {
		return nil, ErrBadRequest("request body is empty")
	}
	return p, nil
}

func (p payload) str(key string) string {
	var s string
	if raw, ok := p[key]; ok && json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

// float returns the value of key when it is a number in [lo, hi], else def.
func (p payload) float(key string, def, lo, hi float64) float64 {
	var v float64
	raw, ok := p[key]
	if !ok || json.Unmarshal(raw, &v) != nil || v < lo || v > hi {
		return def
	}
	return v
}

// number returns the value of key when it is any number, else def.
func (p payload) number(key string, def float64) float64 {
	var v float64
	raw, ok := p[key]
	if !ok || json.Unmarshal(raw, &v) != nil {
		return def
	}
	return v
}

// integer returns the value of key when it is an integer in [lo, hi], else def.
// Fractional numbers are not integers.
func (p payload) integer(key string, def, lo, hi int) int {
	var v int
	raw, ok := p[key]
	if !ok || json.Unmarshal(raw, &v) != nil || v < lo || v > hi {
		return def
	}
	return v
}

// list decodes key as an array of strings. ok is false when the field is
// missing or not such an array.
func (p payload) list(key string) ([]string, bool) {
	var v []string
	raw, ok := p[key]
	if !ok || json.Unmarshal(raw, &v) != nil || v == nil {
		return nil, false
	}
	return v, true
}

// resumeText validates the résumé field shared by the text endpoints.
func (p payload) resumeText() (string, *APIError) {
	text := strings.TrimSpace(p.str("resume_text"))
	if text == "" {
		return "", ErrBadRequest("resume_text must be a non-empty string")
	}
	if utf8.RuneCountInString(text) < minTextLength {
		return "", ErrBadRequest(fmt.Sprintf("resume_text must have at least %d characters", minTextLength))
	}
	return text, nil
}

// requiredList validates a non-empty list of at most maxListItems entries.
func (p payload) requiredList(key string) ([]string, *APIError) {
	values, ok := p.list(key)
	if !ok {
		return nil, ErrBadRequest(key + " must be a list of strings")
	}
	if len(values) == 0 {
		return nil, ErrBadRequest(key + " must not be empty")
	}
	if len(values) > maxListItems {
		return nil, ErrBadRequest(fmt.Sprintf("at most %d items per request in %s", maxListItems, key))
	}
	return values, nil
}
