// internal/httpapi/respond.go
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"

	"libradesk/internal/library"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

// Error codes carried in the error envelope.
const (
	CodeValidation  = "validation_error"
	CodeNotFound    = "not_found"
	CodeNoCopies    = "no_copies_available"
	CodeReturned    = "already_returned"
	CodeConflict    = "conflict"
	CodeRateLimited = "rate_limited"
	CodeBadRequest  = "bad_request"
	CodeInternal    = "internal"
	CodeUnavailable = "unavailable"
)

// ErrorBody is the payload of every non-2xx response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":{"message":"failed to encode response","code":"internal"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Message: message, Code: code}})
}

// classify maps a service error onto a status and envelope code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, library.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, library.ErrNoCopiesAvailable):
		return http.StatusConflict, CodeNoCopies
	case errors.Is(err, library.ErrAlreadyReturned):
		return http.StatusConflict, CodeReturned
	case errors.Is(err, library.ErrConflict):
		return http.StatusConflict, CodeConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, CodeUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	detail := ErrorDetail{Message: err.Error(), Code: code}

	var verr *library.ValidationError
	if errors.As(err, &verr) {
		detail.Field = verr.Field
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		detail.Message = "internal error"
	}
	writeJSON(w, status, ErrorBody{Error: detail})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

// looseInt accepts a JSON number, a numeric string, an empty string or
// null. HTML forms post every field as a string.
type looseInt struct {
	Value int64
	Set   bool
}

func (n *looseInt) UnmarshalJSON(raw []byte) error {
	s := strings.TrimSpace(string(raw))
	if s == "null" {
		*n = looseInt{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*n = looseInt{}
			return nil
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid integer %q", s)
	}
	*n = looseInt{Value: v, Set: true}
	return nil
}

func (n looseInt) intPtr() *int {
	if !n.Set {
		return nil
	}
	v := int(n.Value)
	return &v
}
