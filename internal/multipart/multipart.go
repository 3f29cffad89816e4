// Package multipart implements the multipart upload protocol: initiate,
// bounded-concurrency part uploads, ordered completion and best-effort abort
// on failure. It issues requests through a caller-supplied DoFunc so that
// signing and URL assembly stay with the owning client.
package multipart

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/xml"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"

	"github.com/kazeochan/tempbin/errors"
	"github.com/kazeochan/tempbin/internal/pool"
	"github.com/kazeochan/tempbin/internal/retry"
	"github.com/kazeochan/tempbin/internal/transport"
	"github.com/kazeochan/tempbin/tbtypes"
)

// DoFunc executes one signed request against the target object. The query
// values are appended to the object URL; sent, when non-nil, receives
// cumulative request body bytes.
type DoFunc func(ctx context.Context, op, method string, query url.Values, header http.Header, body []byte, sent func(int64)) (*transport.Response, error)

// Uploader drives one multipart upload of a single object.
type Uploader struct {
	Do      DoFunc
	Logger  *slog.Logger
	Policy  tbtypes.UploadPolicy
	Metrics tbtypes.Recorder

	// Header carries object headers for the initiate request, typically
	// Content-Type and x-amz-meta-* entries.
	Header http.Header

	// Progress, when non-nil, receives the weighted overall percentage in
	// the range [0,100].
	Progress tbtypes.ProgressFunc
}

type initiateResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	UploadID string   `xml:"UploadId"`
}

type completedPart struct {
	PartNumber int    `xml:"PartNumber"`
	ETag       string `xml:"ETag"`
}

type completeRequest struct {
	XMLName xml.Name        `xml:"CompleteMultipartUpload"`
	Parts   []completedPart `xml:"Part"`
}

type completeResult struct {
	XMLName xml.Name `xml:"CompleteMultipartUploadResult"`
	ETag    string   `xml:"ETag"`
}

// Upload transfers data as a multipart upload and returns the ETag of the
// assembled object. Parts upload concurrently up to the configured limit,
// each retried independently. Any failure after initiation triggers a single
// best-effort abort and the original failure is returned.
func (u *Uploader) Upload(ctx context.Context, data []byte) (string, error) {
	uploadID, err := u.initiate(ctx)
	if err != nil {
		return "", err
	}

	etag, err := u.uploadParts(ctx, uploadID, data)
	if err != nil {
		u.abort(ctx, uploadID)
		return "", err
	}
	return etag, nil
}

func (u *Uploader) initiate(ctx context.Context) (string, error) {
	var res *transport.Response
	err := u.withRetry(ctx, "initiate_multipart", func() error {
		var err error
		res, err = u.Do(ctx, "initiate_multipart", http.MethodPost,
			url.Values{"uploads": {""}}, u.Header, nil, nil)
		return err
	})
	if err != nil {
		return "", errors.NewError("InitiateMultipart", errors.ErrUploadInitiation).
			WithMessage(err.Error())
	}

	var init initiateResult
	if err := xml.Unmarshal(res.Body, &init); err != nil || init.UploadID == "" {
		return "", errors.NewError("InitiateMultipart", errors.ErrUploadInitiation).
			WithMessage("response carried no upload id")
	}

	u.Logger.DebugContext(ctx, "multipart upload initiated",
		slog.String("upload_id", init.UploadID))
	return init.UploadID, nil
}

type partSpec struct {
	number int
	body   []byte
}

func (u *Uploader) uploadParts(ctx context.Context, uploadID string, data []byte) (string, error) {
	parts := splitParts(data, u.Policy.PartSize)
	tracker := newProgressTracker(parts, int64(len(data)), u.Progress)

	completed, err := pool.Map(ctx, u.Policy.Concurrency, parts,
		func(ctx context.Context, i int, p partSpec) (completedPart, error) {
			return u.uploadPart(ctx, uploadID, p, func(sent int64) {
				tracker.update(i, sent)
			})
		})
	if err != nil {
		return "", err
	}

	return u.complete(ctx, uploadID, completed)
}

func (u *Uploader) uploadPart(ctx context.Context, uploadID string, p partSpec, sent func(int64)) (completedPart, error) {
	query := url.Values{
		"partNumber": {strconv.Itoa(p.number)},
		"uploadId":   {uploadID},
	}

	var res *transport.Response
	err := u.withRetry(ctx, "upload_part", func() error {
		var err error
		res, err = u.Do(ctx, "upload_part", http.MethodPut, query, nil, p.body, sent)
		return err
	})
	if err != nil {
		return completedPart{}, errors.NewError("UploadPart", errors.ErrPartUpload).
			WithMessage("part " + strconv.Itoa(p.number) + ": " + err.Error())
	}

	if u.Metrics != nil {
		u.Metrics.AddBytesUploaded(int64(len(p.body)))
	}
	sent(int64(len(p.body)))
	return completedPart{PartNumber: p.number, ETag: res.ETag()}, nil
}

func (u *Uploader) complete(ctx context.Context, uploadID string, parts []completedPart) (string, error) {
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })

	body, err := xml.Marshal(completeRequest{Parts: parts})
	if err != nil {
		return "", err
	}
	sum := md5.Sum(body)
	header := http.Header{}
	header.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	header.Set("Content-Type", "application/xml")

	var res *transport.Response
	err = u.withRetry(ctx, "complete_multipart", func() error {
		var err error
		res, err = u.Do(ctx, "complete_multipart", http.MethodPost,
			url.Values{"uploadId": {uploadID}}, header, body, nil)
		return err
	})
	if err != nil {
		return "", errors.NewError("CompleteMultipart", errors.ErrCompletion).
			WithMessage(err.Error())
	}

	var result completeResult
	if err := xml.Unmarshal(res.Body, &result); err != nil {
		return "", errors.NewError("CompleteMultipart", errors.ErrCompletion).
			WithMessage("unreadable completion response")
	}
	return result.ETag, nil
}

// abort releases the server-side parts of a failed upload. It runs even when
// the upload failed through cancellation and is retried under the same policy
// as every other call; its own failure is only logged and never masks the
// error that triggered it.
func (u *Uploader) abort(ctx context.Context, uploadID string) {
	ctx = context.WithoutCancel(ctx)
	err := u.withRetry(ctx, "abort_multipart", func() error {
		_, err := u.Do(ctx, "abort_multipart", http.MethodDelete,
			url.Values{"uploadId": {uploadID}}, nil, nil, nil)
		return err
	})
	if err != nil {
		u.Logger.WarnContext(ctx, "failed to abort multipart upload",
			slog.String("upload_id", uploadID),
			slog.Any("error", err))
		return
	}
	u.Logger.DebugContext(ctx, "multipart upload aborted",
		slog.String("upload_id", uploadID))
}

func (u *Uploader) withRetry(ctx context.Context, op string, fn func() error) error {
	attempt := 0
	return retry.Do(ctx, u.Policy.Retry, func() error {
		attempt++
		if attempt > 1 && u.Metrics != nil {
			u.Metrics.AddRetry(op)
		}
		return fn()
	})
}

// splitParts slices data into contiguous 1-based numbered parts of at most
// partSize bytes. The slices alias data; nothing is copied.
func splitParts(data []byte, partSize int64) []partSpec {
	if partSize <= 0 {
		partSize = tbtypes.DefaultPartSize
	}
	var parts []partSpec
	for off := int64(0); off < int64(len(data)); off += partSize {
		end := off + partSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		parts = append(parts, partSpec{number: len(parts) + 1, body: data[off:end]})
	}
	return parts
}

// progressTracker aggregates per-part transfer counts into one overall
// percentage. Counts only move forward, so a retried part does not drag the
// total back down.
type progressTracker struct {
	mu       sync.Mutex
	sent     []int64
	reported float64
	total    int64
	cb       tbtypes.ProgressFunc
}

func newProgressTracker(parts []partSpec, total int64, cb tbtypes.ProgressFunc) *progressTracker {
	return &progressTracker{sent: make([]int64, len(parts)), total: total, cb: cb}
}

func (t *progressTracker) update(part int, sent int64) {
	if t.cb == nil || t.total == 0 {
		return
	}
	t.mu.Lock()
	if sent <= t.sent[part] {
		t.mu.Unlock()
		return
	}
	t.sent[part] = sent
	var sum int64
	for _, n := range t.sent {
		sum += n
	}
	pct := float64(sum) / float64(t.total) * 100
	if pct <= t.reported {
		t.mu.Unlock()
		return
	}
	t.reported = pct
	t.mu.Unlock()

	// The callback runs with no tracker lock held, so it may call back into
	// the upload machinery.
	t.cb(pct)
}
