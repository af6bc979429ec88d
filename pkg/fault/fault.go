// Package fault defines the error taxonomy shared by the workflow engine,
// the agent bus, and the HTTP façade.
package fault

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when an entity (case, listing) does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrCacheMiss is returned when no cached row matches a listing filter.
	ErrCacheMiss = errors.New("no cached rows match filter")

	// ErrCancelled is returned when a workflow or outbound call was cancelled
	// before completion. A cancelled call must not touch the store.
	ErrCancelled = errors.New("operation cancelled")

	// ErrInternal marks unexpected failures. It is the only class the HTTP
	// façade converts to a 500.
	ErrInternal = errors.New("internal error")
)

// ValidationError reports a missing or malformed intake field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// UpstreamError reports a failure from an external collaborator
// (voice provider, routing provider, document extractor, proxy).
type UpstreamError struct {
	Upstream string
	Detail   string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s upstream error: %s: %v", e.Upstream, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s upstream error: %s", e.Upstream, e.Detail)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// NewUpstreamError wraps an external collaborator failure.
func NewUpstreamError(upstream, detail string, err error) error {
	return &UpstreamError{Upstream: upstream, Detail: detail, Err: err}
}

// TimeoutError reports an outbound call that exceeded its deadline.
type TimeoutError struct {
	Upstream string
	Deadline time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s call exceeded deadline of %s", e.Upstream, e.Deadline)
}

// NewTimeout creates a timeout error for the named upstream.
func NewTimeout(upstream string, deadline time.Duration) error {
	return &TimeoutError{Upstream: upstream, Deadline: deadline}
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// QuotaExceededError reports an upstream daily-quota rejection.
type QuotaExceededError struct {
	Upstream string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s daily quota exceeded", e.Upstream)
}

// IsQuotaExceeded checks if an error is a quota rejection.
func IsQuotaExceeded(err error) bool {
	var qe *QuotaExceededError
	return errors.As(err, &qe)
}

// RemoteError is the bus-boundary conversion of a handler failure.
// Only RemoteError and TimeoutError cross the coordinator boundary.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote agent error (%s): %s", e.Kind, e.Message)
}

// KindOf classifies an error into a RemoteError kind string.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case IsValidationError(err):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrCacheMiss):
		return "cache_miss"
	case IsTimeout(err):
		return "timeout"
	case IsQuotaExceeded(err):
		return "quota_exceeded"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	default:
		var ue *UpstreamError
		if errors.As(err, &ue) {
			return "upstream"
		}
		return "internal"
	}
}
