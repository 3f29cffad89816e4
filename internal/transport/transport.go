// Package transport executes signed storage requests over HTTP and converts
// non-success status codes into typed errors. It is deliberately unaware of
// signing: callers attach whatever authentication headers they need before
// handing the request over.
package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kazeochan/tempbin/errors"
	"github.com/kazeochan/tempbin/tbtypes"
)

// errorBodyLimit caps how much of an error response body is kept for the
// error message.
const errorBodyLimit = 2048

// Request describes a single storage request. URL must be fully formed,
// including any query string, and Header must already carry the
// authentication headers.
type Request struct {
	// Op names the logical operation for logs and metrics, for example
	// "upload_part".
	Op string

	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Sent, when non-nil, is called with the cumulative number of request
	// body bytes written so far.
	Sent func(n int64)

	// TolerateNotFound treats a 404 response as success instead of an error.
	// The caller distinguishes the case through Response.Status.
	TolerateNotFound bool
}

// Response is the outcome of a successful (or tolerated) request with the
// body fully read.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// ETag returns the response ETag with surrounding quotes stripped.
func (r *Response) ETag() string {
	return strings.Trim(r.Header.Get("ETag"), `"`)
}

// Client issues requests with a shared *http.Client, logging each exchange
// and recording it with the metrics sink.
type Client struct {
	HTTP    *http.Client
	Logger  *slog.Logger
	Metrics tbtypes.Recorder
}

// New returns a Client over httpClient. A nil logger discards log output.
func New(httpClient *http.Client, logger *slog.Logger, metrics tbtypes.Recorder) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{HTTP: httpClient, Logger: logger, Metrics: metrics}
}

// Do executes req and reads the full response body. Status codes outside the
// 2xx range produce a *errors.TransportError carrying the code and a snippet
// of the response body; a 404 is passed through as a normal response when
// req.TolerateNotFound is set.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, nil)
	if err != nil {
		return nil, err
	}
	if req.Header != nil {
		hreq.Header = req.Header.Clone()
	}
	if req.Body != nil {
		body := req.Body
		hreq.ContentLength = int64(len(body))
		hreq.Body = io.NopCloser(&countingReader{r: bytes.NewReader(body), sent: req.Sent})
		hreq.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(&countingReader{r: bytes.NewReader(body), sent: req.Sent}), nil
		}
	}

	start := time.Now()
	hres, err := c.HTTP.Do(hreq)
	if err != nil {
		c.Logger.ErrorContext(ctx, "request failed",
			slog.String("op", req.Op),
			slog.String("method", req.Method),
			slog.Any("error", err))
		c.observe(req.Op, 0, time.Since(start))
		return nil, err
	}
	defer hres.Body.Close()

	elapsed := time.Since(start)
	c.observe(req.Op, hres.StatusCode, elapsed)
	c.Logger.DebugContext(ctx, "request completed",
		slog.String("op", req.Op),
		slog.String("method", req.Method),
		slog.Int("status", hres.StatusCode),
		slog.Duration("elapsed", elapsed))

	if hres.StatusCode >= 200 && hres.StatusCode < 300 ||
		(hres.StatusCode == http.StatusNotFound && req.TolerateNotFound) {
		data, err := io.ReadAll(hres.Body)
		if err != nil {
			return nil, err
		}
		return &Response{Status: hres.StatusCode, Header: hres.Header, Body: data}, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(hres.Body, errorBodyLimit))
	return nil, &errors.TransportError{
		Status:  hres.StatusCode,
		Message: strings.TrimSpace(string(snippet)),
	}
}

func (c *Client) observe(op string, status int, d time.Duration) {
	if c.Metrics != nil {
		c.Metrics.ObserveRequest(op, status, d)
	}
}

// countingReader reports cumulative bytes read to sent. A retried request
// gets a fresh reader, so the count restarts from zero per attempt.
type countingReader struct {
	r    *bytes.Reader
	n    int64
	sent func(n int64)
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.n += int64(n)
		if c.sent != nil {
			c.sent(c.n)
		}
	}
	return n, err
}
