// Package apierr implements the error taxonomy from spec.md §7 and renders
// it as RFC 7807 problem documents at the HTTP edge.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Kind is one of the seven error categories the system distinguishes.
type Kind string

const (
	KindTransient    Kind = "transient"
	KindPermanent    Kind = "permanent"
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindTenancy      Kind = "tenancy"
	KindIntegrity    Kind = "integrity"
	KindFatal        Kind = "fatal"
)

var statusByKind = map[Kind]int{
	KindTransient:    http.StatusServiceUnavailable,
	KindPermanent:    http.StatusUnprocessableEntity,
	KindValidation:   http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindTenancy:      http.StatusForbidden,
	KindIntegrity:    http.StatusConflict,
	KindFatal:        http.StatusInternalServerError,
}

// Error wraps an underlying cause with a Kind for classification and
// recovery decisions (retry transient, surface validation, alert on fatal).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func Transient(msg string, cause error) *Error    { return New(KindTransient, msg, cause) }
func Permanent(msg string, cause error) *Error    { return New(KindPermanent, msg, cause) }
func Validation(msg string, cause error) *Error   { return New(KindValidation, msg, cause) }
func Unauthorized(msg string, cause error) *Error { return New(KindUnauthorized, msg, cause) }
func Tenancy(msg string, cause error) *Error      { return New(KindTenancy, msg, cause) }
func Integrity(msg string, cause error) *Error    { return New(KindIntegrity, msg, cause) }
func Fatal(msg string, cause error) *Error        { return New(KindFatal, msg, cause) }

// As extracts an *Error, returning (err, true) if v or something it wraps
// is an *Error.
func As(v error) (*Error, bool) {
	var e *Error
	if errors.As(v, &e) {
		return e, true
	}
	return nil, false
}

// Problem is an RFC 7807 problem-details document.
type Problem struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Status        int    `json:"status"`
	Detail        string `json:"detail,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// WriteProblem renders err as an RFC 7807 document onto w, using
// correlationID from the request's chi middleware.RequestID value.
func WriteProblem(w http.ResponseWriter, err error, correlationID string) {
	kind := KindFatal
	detail := err.Error()
	if e, ok := As(err); ok {
		kind = e.Kind
		detail = e.Message
	}
	status, ok := statusByKind[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	p := Problem{
		Type:          "https://sitrep.dev/problems/" + string(kind),
		Title:         string(kind),
		Status:        status,
		Detail:        detail,
		CorrelationID: correlationID,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(p)
}
