// Package tbtypes provides shared type definitions for the tempbin module.
package tbtypes

import (
	"log/slog"
	"net/http"
	"time"
)

// Size constants used by the default upload policy.
const (
	// DefaultMultipartThreshold is the size above which uploads switch to the
	// multipart path.
	DefaultMultipartThreshold int64 = 100 * 1024 * 1024

	// DefaultPartSize is the fixed size of each multipart part. The last part
	// carries the remainder.
	DefaultPartSize int64 = 10 * 1024 * 1024

	// DefaultConcurrency is the number of part uploads allowed in flight at
	// once.
	DefaultConcurrency = 3

	// DefaultShareExpiry is the validity window of a presigned download URL.
	DefaultShareExpiry = 600 * time.Second
)

// Credentials holds the long-lived access credentials for one bucket on an
// S3-compatible store. Values are read once per client and never logged.
type Credentials struct {
	// AccountID is the account identifier that forms the endpoint host.
	AccountID string

	// AccessKeyID identifies the key pair in signed requests.
	AccessKeyID string

	// SecretAccessKey seeds the signing-key derivation. Never transmitted.
	SecretAccessKey string

	// Bucket is the bucket all object operations address.
	Bucket string

	// PublicURL, when set, is a custom public domain mapped to the bucket.
	// Download links are built as PublicURL/key with no signature.
	PublicURL string
}

// RetryPolicy controls the bounded exponential-backoff retry applied to every
// individual network call.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// InitialDelay is the sleep before the second attempt.
	InitialDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64
}

// DefaultRetryPolicy returns the standard 3-attempt policy with a one second
// initial delay doubling per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Multiplier:   2,
	}
}

// UploadPolicy is the explicit value governing the single-vs-multipart split
// and the part scheduler. Tests exercise small thresholds by passing their
// own policy instead of relying on package globals.
type UploadPolicy struct {
	// MultipartThreshold is the size above which multipart upload is used.
	MultipartThreshold int64

	// PartSize is the fixed byte size of each part.
	PartSize int64

	// Concurrency bounds the number of parts in flight.
	Concurrency int

	// Retry wraps each network call of an upload.
	Retry RetryPolicy
}

// DefaultUploadPolicy returns the production policy: 100 MB threshold, 10 MB
// parts, three parts in flight.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{
		MultipartThreshold: DefaultMultipartThreshold,
		PartSize:           DefaultPartSize,
		Concurrency:        DefaultConcurrency,
		Retry:              DefaultRetryPolicy(),
	}
}

// ProgressFunc receives upload progress as a percentage in [0, 100]. It is
// invoked synchronously on the uploading goroutine and must be cheap; values
// are non-decreasing within one upload.
type ProgressFunc func(percent float64)

// Recorder receives operation telemetry. The metrics package provides a
// Prometheus-backed implementation; a nil Recorder disables recording.
type Recorder interface {
	// ObserveRequest records one completed HTTP request for op with the
	// response status (0 for transport-level failures).
	ObserveRequest(op string, status int, d time.Duration)

	// AddRetry counts one retried attempt for op.
	AddRetry(op string)

	// AddBytesUploaded counts payload bytes confirmed uploaded.
	AddBytesUploaded(n int64)
}

// UploadResult describes a completed upload.
type UploadResult struct {
	// FileID is a freshly generated identifier callers may persist.
	FileID string

	// Key is the object key the data was stored under.
	Key string

	// Size is the uploaded payload size in bytes.
	Size int64

	// ETag is the entity tag returned by the store.
	ETag string

	// URL is a shareable download link (presigned unless a public URL is
	// configured).
	URL string

	// Fingerprint is the client-side dedup digest of the content.
	Fingerprint string

	// Duration is the wall-clock time of the upload.
	Duration time.Duration
}

// CORSRule describes one rule of a bucket CORS configuration.
type CORSRule struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	MaxAgeSeconds  int
}

// LifecycleRule describes one object-expiration rule.
type LifecycleRule struct {
	// ID labels the rule; optional.
	ID string

	// Prefix limits the rule to keys with this prefix. Empty matches all.
	Prefix string

	// ExpireAfterDays deletes matching objects this many days after creation.
	ExpireAfterDays int
}

// ClientConfig holds the resolved client configuration. Populated by Option
// values; not used directly.
type ClientConfig struct {
	// Endpoint overrides the derived {accountID}.r2.cloudflarestorage.com
	// host. Host only, no scheme.
	Endpoint string

	// Region is the signing region. Defaults to "auto".
	Region string

	// HTTPClient overrides the default http.Client.
	HTTPClient *http.Client

	// Logger receives operational logs. Defaults to slog.Default.
	Logger *slog.Logger

	// Policy governs uploads.
	Policy UploadPolicy

	// Metrics receives telemetry; nil disables it.
	Metrics Recorder

	// Clock overrides the time source for signing. Test hook.
	Clock func() time.Time
}

// Option configures a Client.
type Option func(*ClientConfig)

// UploadConfig holds per-upload settings. Populated by UploadOption values.
type UploadConfig struct {
	// ContentType of the object. Detected from the key or file content when
	// empty.
	ContentType string

	// Metadata is stored as x-amz-meta-* headers on the object.
	Metadata map[string]string

	// Progress receives percentage updates during the upload.
	Progress ProgressFunc
}

// UploadOption configures a single upload.
type UploadOption func(*UploadConfig)

// PresignConfig holds settings for generating a presigned URL.
type PresignConfig struct {
	// Expiry is the validity window, counted from URL construction.
	Expiry time.Duration
}

// PresignOption configures a presigned URL.
type PresignOption func(*PresignConfig)
