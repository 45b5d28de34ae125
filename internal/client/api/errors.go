package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrUnavailable  = errors.New("server unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrRequest      = errors.New("request rejected")
	ErrServer       = errors.New("server error")
)

// Error is the failure half of every result pair.
type Error struct {
	// Status is the HTTP status code, or 0 when no response was received.
	Status int `json:"status"`
	// Message is human readable and safe to show to the user.
	Message string `json:"message"`
	// Errors maps field names to validation messages, when the server (or
	// the local validator) reported any.
	Errors map[string][]string `json:"errors,omitempty"`
	// Err is the underlying transport or decoding error, if any.
	Err error `json:"-"`

	transport bool
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Status != 0 {
		fmt.Fprintf(&b, "%d: ", e.Status)
	}
	b.WriteString(e.Message)
	if len(e.Errors) > 0 {
		fields := make([]string, 0, len(e.Errors))
		for f := range e.Errors {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		fmt.Fprintf(&b, " (%s)", strings.Join(fields, ", "))
	}
	if e.Err != nil && e.transport {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnavailable:
		return e.transport
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrValidation:
		return len(e.Errors) > 0 && (e.Status == 0 || isClientError(e.Status))
	case ErrRequest:
		return isClientError(e.Status)
	case ErrServer:
		return e.Status >= 500
	}
	return false
}

// FieldError returns the first message for field, or "".
func (e *Error) FieldError(field string) string {
	if msgs := e.Errors[field]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

func isClientError(status int) bool {
	return status >= 400 && status < 500
}

func transportError(msg string, err error) *Error {
	return &Error{Message: msg, Err: err, transport: true}
}

// errorBody covers both ASP.NET ProblemDetails ({title, detail, errors}) and
// the plain {message, errors} shape some endpoints use.
type errorBody struct {
	Message string          `json:"message"`
	Title   string          `json:"title"`
	Detail  string          `json:"detail"`
	Errors  json.RawMessage `json:"errors"`
}

func newStatusError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		e.Message = firstNonEmpty(eb.Message, eb.Detail, eb.Title)
		e.Errors = decodeFieldErrors(eb.Errors)
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 {
		e.Message = text
	}

	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// decodeFieldErrors accepts {"f": ["m"]}, {"f": "m"} and ["m"] (stored
// under the empty key).
func decodeFieldErrors(raw json.RawMessage) map[string][]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var many map[string][]string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}

	var single map[string]string
	if err := json.Unmarshal(raw, &single); err == nil {
		out := make(map[string][]string, len(single))
		for k, v := range single {
			out[k] = []string{v}
		}
		return out
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return map[string][]string{"": list}
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
