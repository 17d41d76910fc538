// Package dsalerr defines the error taxonomy shared by every data source
// accessor. Callers classify errors with errors.Is against the Kind
// sentinels rather than by inspecting message strings.
package dsalerr

import (
	"errors"
	"fmt"
)

// Kind is one entry in the fixed error taxonomy.
type Kind string

const (
	InvalidUri             Kind = "invalid_uri"
	UriNotForConnection    Kind = "uri_not_for_connection"
	NotFound               Kind = "not_found"
	AlreadyExists          Kind = "already_exists"
	NotEmpty               Kind = "not_empty"
	CapabilityUnsupported  Kind = "capability_unsupported"
	InvalidQuery           Kind = "invalid_query"
	AuthRequired           Kind = "auth_required"
	AuthExpired            Kind = "auth_expired"
	UpstreamError          Kind = "upstream_error"
	IoError                Kind = "io_error"
	Cancelled              Kind = "cancelled"
)

// Error wraps an underlying cause with a taxonomy Kind.
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

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, dsalerr.New(dsalerr.NotFound, "")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// New constructs an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind, preserving cause for
// errors.Unwrap chains.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Of reports the Kind of err if it (or something it wraps) is an *Error.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err's Kind matches kind.
func Is(err error, kind Kind) bool {
	k, ok := Of(err)
	return ok && k == kind
}
