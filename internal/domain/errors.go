package domain

import (
	"errors"
	"fmt"
)

// Kind is a stable machine-readable error category exposed to callers.
type Kind string

const (
	KindUnauthenticated     Kind = "unauthenticated"
	KindForbiddenTier       Kind = "forbidden_tier"
	KindInvalidInput        Kind = "invalid_input"
	KindServiceUnconfigured Kind = "service_unconfigured"
	KindUpstreamAuth        Kind = "upstream_auth_failed"
	KindUpstreamRateLimited Kind = "upstream_rate_limited"
	KindUpstreamBilling     Kind = "upstream_billing_required"
	KindUpstreamModel       Kind = "upstream_model_error"
	KindUpstreamFetch       Kind = "upstream_fetch_failed"
	KindInternal            Kind = "internal_error"
)

// Error pairs a Kind with a human-readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds an *Error for the given kind and message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error that keeps the cause for logging.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the Kind from err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// MessageOf extracts the caller-visible message from err, falling back to
// a generic one so internal detail never leaks.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal server error"
}
