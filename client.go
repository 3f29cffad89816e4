package tempbin

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/kazeochan/tempbin/errors"
	"github.com/kazeochan/tempbin/internal/digest"
	"github.com/kazeochan/tempbin/internal/retry"
	"github.com/kazeochan/tempbin/internal/sigv4"
	"github.com/kazeochan/tempbin/internal/transport"
	"github.com/kazeochan/tempbin/tbtypes"
)

// endpointSuffix is the host suffix appended to the account ID when no
// explicit endpoint is configured.
const endpointSuffix = ".r2.cloudflarestorage.com"

// Client performs object and bucket operations against one bucket of an
// S3-compatible store. A Client is safe for concurrent use; credentials are
// captured at construction and later clients do not affect operations already
// in flight.
type Client struct {
	creds   tbtypes.Credentials
	policy  tbtypes.UploadPolicy
	signer  *sigv4.Signer
	http    *transport.Client
	logger  *slog.Logger
	metrics tbtypes.Recorder
	now     func() time.Time
	host    string
}

// New creates a Client for the bucket named in creds. The endpoint host is
// derived from the account ID unless WithEndpoint overrides it. Missing
// credentials fail immediately with a ConfigMissing error rather than on
// first use.
func New(creds tbtypes.Credentials, opts ...tbtypes.Option) (*Client, error) {
	cfg := tbtypes.ClientConfig{
		Policy: tbtypes.DefaultUploadPolicy(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := validateCreds(creds, cfg.Endpoint); err != nil {
		return nil, err
	}

	host := cfg.Endpoint
	if host == "" {
		host = creds.AccountID + endpointSuffix
	}

	signer := sigv4.New(creds.AccessKeyID, creds.SecretAccessKey)
	if cfg.Region != "" {
		signer.Region = cfg.Region
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}

	return &Client{
		creds:   creds,
		policy:  cfg.Policy,
		signer:  signer,
		http:    transport.New(cfg.HTTPClient, logger, cfg.Metrics),
		logger:  logger,
		metrics: cfg.Metrics,
		now:     now,
		host:    host,
	}, nil
}

func validateCreds(creds tbtypes.Credentials, endpoint string) error {
	missing := ""
	switch {
	case creds.AccountID == "" && endpoint == "":
		missing = "account ID"
	case creds.AccessKeyID == "":
		missing = "access key ID"
	case creds.SecretAccessKey == "":
		missing = "secret access key"
	case creds.Bucket == "":
		missing = "bucket"
	}
	if missing == "" {
		return nil
	}
	return errors.NewError("New", errors.ErrConfigMissing).
		WithBucket(creds.Bucket).
		WithMessage(missing + " is not set")
}

// bucketPath returns the encoded request path for key, or for the bucket
// itself when key is empty.
func (c *Client) bucketPath(key string) string {
	p := "/" + c.creds.Bucket
	if key != "" {
		p += "/" + key
	}
	return sigv4.EncodePath(p)
}

// do signs and executes one request against the bucket. The signature covers
// the method, encoded path, canonical query, host, timestamp and payload
// hash; each call captures a fresh timestamp, so a retried call is re-signed.
func (c *Client) do(ctx context.Context, op, method, key string, query url.Values, header http.Header, body []byte, sent func(int64), tolerateNotFound bool) (*transport.Response, error) {
	now := c.now().UTC()
	path := c.bucketPath(key)

	payloadHash := digest.EmptyPayloadHash
	if len(body) > 0 {
		payloadHash = digest.SHA256Hex(body)
	}

	h := http.Header{}
	for k, vs := range header {
		h[k] = vs
	}
	h.Set("X-Amz-Date", now.Format(sigv4.TimeFormat))
	h.Set("X-Amz-Content-Sha256", payloadHash)

	signed := h.Clone()
	signed.Set("Host", c.host)
	h.Set("Authorization", c.signer.SignHeaders(method, path, query, signed, payloadHash, now))

	u := "https://" + c.host + path
	if q := sigv4.CanonicalQuery(query); q != "" {
		u += "?" + q
	}

	return c.http.Do(ctx, &transport.Request{
		Op:               op,
		Method:           method,
		URL:              u,
		Header:           h,
		Body:             body,
		Sent:             sent,
		TolerateNotFound: tolerateNotFound,
	})
}

// withRetry wraps fn in the client retry policy, counting retried attempts.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	return retry.Do(ctx, c.policy.Retry, func() error {
		attempt++
		if attempt > 1 && c.metrics != nil {
			c.metrics.AddRetry(op)
		}
		return fn()
	})
}
