package aitl

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an Error into one of the failure classes the CLI can branch on.
type Kind int

const (
	// KindValidation is malformed or missing local input. Nothing was sent.
	KindValidation Kind = iota + 1
	// KindTransport is a network, DNS or timeout failure.
	KindTransport
	// KindAPI is a well-formed error response from the service.
	KindAPI
	// KindProtocol is a response that violates the expected contract.
	KindProtocol
)

// String returns the string representation of a Kind
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindAPI:
		return "api"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Validation errors returned by the request builder
var (
	ErrMissingName           = errors.New("name is required")
	ErrInvalidName           = errors.New("name must be a single path segment")
	ErrMissingScope          = errors.New("subscription id and resource group are required")
	ErrMissingToken          = errors.New("access token is required")
	ErrImageSourceConflict   = errors.New("only one of --vhd-sas-url or --marketplace-image-urn can be used for a given test job")
	ErrImageSourceMissing    = errors.New("one of --vhd-sas-url or --marketplace-image-urn should be passed")
	ErrInvalidArchitecture   = errors.New("architecture must be x64 or arm64")
	ErrInvalidVMGeneration   = errors.New("vm generation must be 1 or 2")
	ErrInvalidConcurrency    = errors.New("concurrency must be between 0 and 4")
	ErrInvalidTestPriority   = errors.New("test priority must not be negative")
	ErrInvalidMarketplaceURN = errors.New("marketplace image urn should be in the format of 'publisher:offer:sku:version'")
)

// Error is the single error type surfaced by the client core
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Code       string
	Message    string
	Body       string
	Retryable  bool
	Attempts   int
	Err        error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	prefix := e.Kind.String() + " error"
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}

	switch {
	case e.StatusCode != 0 && e.Code != "":
		return fmt.Sprintf("%s: status %d (%s): %s", prefix, e.StatusCode, e.Code, msg)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %s", prefix, e.StatusCode, msg)
	default:
		return fmt.Sprintf("%s: %s", prefix, msg)
	}
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound checks if the error indicates a not found response
func (e *Error) IsNotFound() bool {
	return e.Kind == KindAPI && e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *Error) IsUnauthorized() bool {
	return e.Kind == KindAPI && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
}

func validationError(op string, err error) *Error {
	return &Error{Kind: KindValidation, Op: op, Err: err}
}

func protocolError(op string, status int, body []byte, format string, args ...any) *Error {
	return &Error{
		Kind:       KindProtocol,
		Op:         op,
		StatusCode: status,
		Message:    fmt.Sprintf(format, args...),
		Body:       snippet(body),
	}
}

// KindOf returns the Kind of err, or 0 when err is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// IsRetryable reports whether err was classified as safe to retry
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// IsNotFound reports whether err is an API error with status 404
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.IsNotFound()
}

// NewValidationError wraps err as a validation error for callers outside the core
// (configuration loading, flag parsing, filter compilation).
func NewValidationError(op string, err error) error {
	return validationError(op, err)
}

const maxSnippet = 512

func snippet(body []byte) string {
	if len(body) <= maxSnippet {
		return string(body)
	}
	return string(body[:maxSnippet]) + "..."
}
