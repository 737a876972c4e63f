package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned for 401 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned for 403 responses and failed permission checks.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned for 409 responses.
	ErrConflict = errors.New("conflict")
	// ErrServer is returned for any other non-2xx response.
	ErrServer = errors.New("server error")
	// ErrNetwork is returned when no response was obtained, including timeouts.
	ErrNetwork = errors.New("network error")
)

// Fallback messages surfaced when the server gives nothing better.
const (
	MessageNetwork = "Unable to reach the server. Check your connection and try again."
	MessageGeneric = "Something went wrong. Please try again."
)

// ErrorResponse represents the error body returned by the blog API.
// Servers disagree on the field name so both are read.
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// HTTPError is a failed gateway call. Status is zero when no response was
// received (network failure or timeout).
type HTTPError struct {
	Status     int
	StatusText string
	Message    string
	Code       string
	Body       []byte
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Status == 0 {
		if e.Message != "" {
			return "network error: " + e.Message
		}
		return "network error"
	}
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.StatusText, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.StatusText)
}

// Unwrap exposes the class sentinel and the transport cause, so both
// errors.Is(err, ErrNotFound) and errors.Is(err, context.DeadlineExceeded) work.
func (e *HTTPError) Unwrap() []error {
	errs := []error{classify(e.Status)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewHTTPError builds an error from a non-2xx response, lifting the server
// message out of a JSON body when there is one.
func NewHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{
		Status:     status,
		StatusText: http.StatusText(status),
		Body:       body,
	}
	var resp ErrorResponse
	if len(body) > 0 && json.Unmarshal(body, &resp) == nil {
		e.Code = resp.Code
		if resp.Message != "" {
			e.Message = resp.Message
		} else {
			e.Message = resp.Error
		}
	}
	return e
}

// NewNetworkError wraps a transport failure.
func NewNetworkError(err error) *HTTPError {
	msg := "request failed"
	if err != nil {
		msg = err.Error()
	}
	return &HTTPError{Message: msg, Err: err}
}

func classify(status int) error {
	switch {
	case status == 0:
		return ErrNetwork
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	default:
		return ErrServer
	}
}

// FieldError is a single client-side validation failure.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError is raised before any network call and never sent to the server.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error for one field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Kind names the taxonomy class of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrUnauthorized):
		return "auth"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNetwork):
		return "network"
	case errors.Is(err, ErrServer):
		return "server"
	default:
		return "unknown"
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// UserMessage picks the text shown to the user for err.
func UserMessage(err error, fallback string) string {
	if fallback == "" {
		fallback = MessageGeneric
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) && len(validationErr.Fields) > 0 {
		return validationErr.Fields[0].Message
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status == 0 {
			return MessageNetwork
		}
		if httpErr.Message != "" {
			return httpErr.Message
		}
	}
	return fallback
}
