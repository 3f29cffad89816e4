package tempbin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/kazeochan/tempbin/tbtypes"
)

// WithHTTPClient sets the *http.Client used for every request. Useful for
// custom timeouts, proxies or test transports.
func WithHTTPClient(hc *http.Client) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.HTTPClient = hc
	}
}

// WithLogger sets the logger for operational events. Defaults to
// slog.Default. Credentials never appear in log output.
func WithLogger(logger *slog.Logger) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Logger = logger
	}
}

// WithEndpoint overrides the endpoint host derived from the account ID.
// Host only, no scheme, for example "minio.internal:9000".
func WithEndpoint(host string) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Endpoint = host
	}
}

// WithRegion sets the signing region. Defaults to "auto".
func WithRegion(region string) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Region = region
	}
}

// WithUploadPolicy replaces the whole upload policy.
func WithUploadPolicy(p tbtypes.UploadPolicy) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Policy = p
	}
}

// WithMultipartThreshold sets the size in bytes above which uploads switch to
// the multipart path.
func WithMultipartThreshold(n int64) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Policy.MultipartThreshold = n
	}
}

// WithPartSize sets the multipart part size in bytes.
func WithPartSize(n int64) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Policy.PartSize = n
	}
}

// WithConcurrency bounds the number of part uploads in flight.
func WithConcurrency(n int) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Policy.Concurrency = n
	}
}

// WithRetryPolicy sets the retry policy applied to every network call.
func WithRetryPolicy(p tbtypes.RetryPolicy) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Policy.Retry = p
	}
}

// WithMetrics attaches a telemetry recorder, for example metrics.New().
func WithMetrics(r tbtypes.Recorder) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Metrics = r
	}
}

// WithClock overrides the time source used for signing timestamps.
func WithClock(now func() time.Time) tbtypes.Option {
	return func(cfg *tbtypes.ClientConfig) {
		cfg.Clock = now
	}
}

// WithContentType sets the object Content-Type explicitly, skipping
// detection.
func WithContentType(ct string) tbtypes.UploadOption {
	return func(cfg *tbtypes.UploadConfig) {
		cfg.ContentType = ct
	}
}

// WithMetadata attaches user metadata, stored as x-amz-meta-* headers.
func WithMetadata(md map[string]string) tbtypes.UploadOption {
	return func(cfg *tbtypes.UploadConfig) {
		cfg.Metadata = md
	}
}

// WithProgress registers a callback receiving upload progress percentages.
func WithProgress(fn tbtypes.ProgressFunc) tbtypes.UploadOption {
	return func(cfg *tbtypes.UploadConfig) {
		cfg.Progress = fn
	}
}

// WithExpiry sets how long a presigned URL stays valid. Defaults to
// tbtypes.DefaultShareExpiry.
func WithExpiry(d time.Duration) tbtypes.PresignOption {
	return func(cfg *tbtypes.PresignConfig) {
		cfg.Expiry = d
	}
}
