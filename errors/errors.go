// Package errors provides error types and handling for tempbin storage
// operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents a storage operation error with context about the operation
// that failed. It wraps the underlying error with the operation name and,
// where applicable, the bucket and object key.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "presign", "putCORS")
	Op string

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("tempbin.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("tempbin.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("tempbin.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("tempbin.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// TransportError is returned for HTTP responses outside the 2xx range. The
// generic retry policy treats every TransportError as retryable; callers that
// need to special-case a status inspect Status directly.
type TransportError struct {
	// Status is the HTTP status code of the response.
	Status int

	// Message carries the response body, truncated, for diagnostics.
	Message string
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("tempbin: unexpected status %d", e.Status)
	}
	return fmt.Sprintf("tempbin: unexpected status %d: %s", e.Status, e.Message)
}

// Sentinel errors for common storage operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrConfigMissing indicates that required credentials are absent. Fatal
	// per call; no retry.
	ErrConfigMissing = errors.New("tempbin: credentials not configured")

	// ErrCryptoUnavailable indicates the environment exposes no secure digest
	// primitive. Reserved for ports to constrained runtimes; the Go standard
	// library always provides one, so this module never produces it.
	ErrCryptoUnavailable = errors.New("tempbin: secure digest unavailable")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("tempbin: invalid input")

	// ErrUploadInitiation indicates the store returned no upload session
	// identifier when a multipart upload was initiated.
	ErrUploadInitiation = errors.New("tempbin: multipart initiation failed")

	// ErrPartUpload indicates a part upload failed after exhausting its retry
	// budget. The session is aborted when this occurs.
	ErrPartUpload = errors.New("tempbin: part upload failed")

	// ErrCompletion indicates the multipart completion call failed. The
	// session is aborted when this occurs.
	ErrCompletion = errors.New("tempbin: multipart completion failed")
)

// Is reports whether any error in err's chain matches target. It forwards to
// the standard library so callers need not import both packages.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain matching target's type.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsConfigMissing checks if an error indicates missing credentials.
func IsConfigMissing(err error) bool {
	return errors.Is(err, ErrConfigMissing)
}

// IsInvalidInput checks if an error indicates invalid input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// StatusOf returns the HTTP status carried by err if a TransportError is in
// its chain, and 0 otherwise.
func StatusOf(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// IsNotFound reports whether err carries an HTTP 404.
func IsNotFound(err error) bool {
	return StatusOf(err) == 404
}
