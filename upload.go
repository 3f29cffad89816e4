package tempbin

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/kazeochan/tempbin/errors"
	"github.com/kazeochan/tempbin/internal/digest"
	"github.com/kazeochan/tempbin/internal/multipart"
	"github.com/kazeochan/tempbin/internal/transport"
	"github.com/kazeochan/tempbin/internal/validation"
	"github.com/kazeochan/tempbin/tbtypes"
)

// Upload stores data under key and returns the result, including a share URL
// and a content fingerprint. Objects at or below the multipart threshold go
// up as one signed PUT; larger objects use the multipart protocol with
// bounded part concurrency. A failed multipart upload is aborted, so the
// store never keeps a partial object.
func (c *Client) Upload(ctx context.Context, key string, data []byte, opts ...tbtypes.UploadOption) (*tbtypes.UploadResult, error) {
	if err := validation.Key(key); err != nil {
		return nil, wrapUploadErr(err, c.creds.Bucket, key)
	}

	cfg := tbtypes.UploadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := validation.Metadata(cfg.Metadata); err != nil {
		return nil, wrapUploadErr(err, c.creds.Bucket, key)
	}
	if cfg.ContentType == "" {
		cfg.ContentType = mimetype.Detect(data).String()
	}

	header := http.Header{}
	header.Set("Content-Type", cfg.ContentType)
	for k, v := range cfg.Metadata {
		header.Set("x-amz-meta-"+k, v)
	}

	size := int64(len(data))
	start := time.Now()

	var (
		etag string
		err  error
	)
	isMultipart := size > c.policy.MultipartThreshold
	if isMultipart {
		etag, err = c.uploadMultipart(ctx, key, header, data, cfg.Progress)
	} else {
		etag, err = c.uploadSingle(ctx, key, header, data, cfg.Progress)
	}
	if err != nil {
		return nil, wrapUploadErr(err, c.creds.Bucket, key)
	}

	shareURL, err := c.ShareURL(key)
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	c.logger.InfoContext(ctx, "upload completed",
		slog.String("key", key),
		slog.Int64("size", size),
		slog.Bool("multipart", isMultipart),
		slog.Duration("elapsed", elapsed))

	return &tbtypes.UploadResult{
		FileID:      uuid.NewString(),
		Key:         key,
		Size:        size,
		ETag:        etag,
		URL:         shareURL,
		Fingerprint: digest.Fingerprint(filepath.Base(key), data),
		Duration:    elapsed,
	}, nil
}

// UploadFile reads the file at path and uploads it under key. The
// Content-Type is sniffed from the file content, falling back to the file
// extension when sniffing is inconclusive.
func (c *Client) UploadFile(ctx context.Context, key, path string, opts ...tbtypes.UploadOption) (*tbtypes.UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewError("UploadFile", err).
			WithBucket(c.creds.Bucket).
			WithKey(key)
	}

	ct := mimetype.Detect(data).String()
	if ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
			ct = byExt
		}
	}

	return c.Upload(ctx, key, data, append([]tbtypes.UploadOption{WithContentType(ct)}, opts...)...)
}

func (c *Client) uploadSingle(ctx context.Context, key string, header http.Header, data []byte, progress tbtypes.ProgressFunc) (string, error) {
	total := int64(len(data))
	var maxSent int64
	sent := func(n int64) {
		if progress == nil || total == 0 || n <= maxSent {
			return
		}
		maxSent = n
		progress(float64(n) / float64(total) * 100)
	}

	var res *transport.Response
	err := c.withRetry(ctx, "put_object", func() error {
		var err error
		res, err = c.do(ctx, "put_object", http.MethodPut, key, nil, header, data, sent, false)
		return err
	})
	if err != nil {
		return "", err
	}

	if c.metrics != nil {
		c.metrics.AddBytesUploaded(total)
	}
	if progress != nil {
		progress(100)
	}
	return res.ETag(), nil
}

func (c *Client) uploadMultipart(ctx context.Context, key string, header http.Header, data []byte, progress tbtypes.ProgressFunc) (string, error) {
	u := &multipart.Uploader{
		Do: func(ctx context.Context, op, method string, query url.Values, h http.Header, body []byte, sent func(int64)) (*transport.Response, error) {
			return c.do(ctx, op, method, key, query, h, body, sent, false)
		},
		Logger:   c.logger,
		Policy:   c.policy,
		Metrics:  c.metrics,
		Header:   header,
		Progress: progress,
	}
	return u.Upload(ctx, data)
}

// wrapUploadErr attaches bucket and key to errors coming out of the upload
// paths, leaving already-annotated errors alone.
func wrapUploadErr(err error, bucket, key string) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return e.WithBucket(bucket).WithKey(key)
	}
	return errors.NewError("Upload", err).WithBucket(bucket).WithKey(key)
}
