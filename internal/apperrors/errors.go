// Package apperrors defines the error taxonomy shared by every service
// component: validation failures, missing/duplicate threads, upstream
// service failures, and rate-limit rejections.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateThread is returned when creating a thread whose id already
// exists in either the active or archived partition.
var ErrDuplicateThread = errors.New("thread already exists")

// ValidationError marks a client-supplied field as missing or invalid.
// Always surfaced as a 4xx response and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a field.
func Validation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// MissingField builds a ValidationError for a required field.
func MissingField(field string) error {
	return &ValidationError{Field: field, Reason: "required"}
}

// NotFoundError identifies an unknown resource id.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ThreadNotFound builds a NotFoundError for a thread id.
func ThreadNotFound(id string) error {
	return &NotFoundError{Resource: "thread", ID: id}
}

// UpstreamError wraps a failure from an external collaborator (generation,
// notification, or identity service). Callers substitute canned fallback
// content where one exists; otherwise it surfaces as a 5xx.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s upstream failure: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Upstream wraps err as an UpstreamError for the named service.
func Upstream(service string, err error) error {
	return &UpstreamError{Service: service, Err: err}
}

// RateLimitError signals quota exhaustion with a retry-after hint.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// IsUpstream reports whether err is an UpstreamError.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
