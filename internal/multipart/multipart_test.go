package multipart

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	terrors "github.com/kazeochan/tempbin/errors"
	"github.com/kazeochan/tempbin/internal/testutil"
	"github.com/kazeochan/tempbin/internal/transport"
	"github.com/kazeochan/tempbin/tbtypes"
)

type call struct {
	op    string
	query url.Values
	body  []byte
}

// fakeStore emulates the multipart endpoints behind a DoFunc, with
// programmable failures per part number.
type fakeStore struct {
	mu            sync.Mutex
	calls         []call
	initiateFails int
	partFails     map[int]int // part number -> failures before success
	completeFails int
	abortFails    int
}

func (f *fakeStore) do(_ context.Context, op, _ string, query url.Values, _ http.Header, body []byte, _ func(int64)) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{op: op, query: query, body: append([]byte(nil), body...)})

	switch op {
	case "initiate_multipart":
		if f.initiateFails > 0 {
			f.initiateFails--
			return nil, &terrors.TransportError{Status: 500, Message: "internal error"}
		}
		return &transport.Response{
			Status: http.StatusOK,
			Body: []byte(`<InitiateMultipartUploadResult>` +
				`<UploadId>upload-1</UploadId></InitiateMultipartUploadResult>`),
		}, nil

	case "upload_part":
		n, _ := strconv.Atoi(query.Get("partNumber"))
		if f.partFails[n] > 0 {
			f.partFails[n]--
			return nil, &terrors.TransportError{Status: 503, Message: "slow down"}
		}
		h := http.Header{}
		h.Set("ETag", `"etag-`+strconv.Itoa(n)+`"`)
		return &transport.Response{Status: http.StatusOK, Header: h}, nil

	case "complete_multipart":
		if f.completeFails > 0 {
			f.completeFails--
			return nil, &terrors.TransportError{Status: 500, Message: "internal error"}
		}
		return &transport.Response{
			Status: http.StatusOK,
			Body: []byte(`<CompleteMultipartUploadResult>` +
				`<ETag>"final-etag"</ETag></CompleteMultipartUploadResult>`),
		}, nil

	case "abort_multipart":
		if f.abortFails > 0 {
			f.abortFails--
			return nil, &terrors.TransportError{Status: 500, Message: "internal error"}
		}
		return &transport.Response{Status: http.StatusNoContent}, nil
	}
	return nil, &terrors.TransportError{Status: 400, Message: "unknown op"}
}

func (f *fakeStore) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.op
	}
	return out
}

func (f *fakeStore) count(op string) int {
	n := 0
	for _, o := range f.ops() {
		if o == op {
			n++
		}
	}
	return n
}

func testUploader(store *fakeStore) *Uploader {
	return &Uploader{
		Do:     store.do,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Policy: tbtypes.UploadPolicy{
			MultipartThreshold: 100,
			PartSize:           10,
			Concurrency:        3,
			Retry: tbtypes.RetryPolicy{
				MaxAttempts:  3,
				InitialDelay: time.Millisecond,
				Multiplier:   2,
			},
		},
	}
}

func payload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return data
}

func TestUpload_SplitsAndCompletes(t *testing.T) {
	store := &fakeStore{}
	u := testUploader(store)

	etag, err := u.Upload(context.Background(), payload(25))
	require.NoError(t, err)
	assert.Equal(t, `"final-etag"`, etag)

	assert.Equal(t, 1, store.count("initiate_multipart"))
	assert.Equal(t, 3, store.count("upload_part"))
	assert.Equal(t, 1, store.count("complete_multipart"))
	assert.Zero(t, store.count("abort_multipart"))

	store.mu.Lock()
	defer store.mu.Unlock()
	seenSizes := map[string]int{}
	for _, c := range store.calls {
		if c.op != "upload_part" {
			continue
		}
		assert.Equal(t, "upload-1", c.query.Get("uploadId"))
		seenSizes[c.query.Get("partNumber")] = len(c.body)
	}
	assert.Equal(t, map[string]int{"1": 10, "2": 10, "3": 5}, seenSizes)
}

func TestUpload_CompletionListSortedAscending(t *testing.T) {
	store := &fakeStore{
		// Stall part 1 behind retries so later parts finish first.
		partFails: map[int]int{1: 2},
	}
	u := testUploader(store)

	_, err := u.Upload(context.Background(), payload(45))
	require.NoError(t, err)

	store.mu.Lock()
	var completeBody []byte
	for _, c := range store.calls {
		if c.op == "complete_multipart" {
			completeBody = c.body
		}
	}
	store.mu.Unlock()
	require.NotNil(t, completeBody)

	var req completeRequest
	require.NoError(t, xml.Unmarshal(completeBody, &req))
	require.Len(t, req.Parts, 5)
	for i, p := range req.Parts {
		assert.Equal(t, i+1, p.PartNumber)
		assert.Equal(t, `etag-`+strconv.Itoa(i+1), p.ETag)
	}
}

func TestUpload_PartFailureAbortsOnce(t *testing.T) {
	store := &fakeStore{
		// Part 3 fails more times than the retry budget allows.
		partFails: map[int]int{3: 10},
	}
	u := testUploader(store)

	_, err := u.Upload(context.Background(), payload(45))
	require.Error(t, err)
	assert.ErrorIs(t, err, terrors.ErrPartUpload)
	assert.Contains(t, err.Error(), "part 3")

	assert.Equal(t, 1, store.count("abort_multipart"))
	assert.Zero(t, store.count("complete_multipart"))
}

func TestUpload_CompletionFailureAborts(t *testing.T) {
	store := &fakeStore{
		// Completion fails more times than the retry budget allows.
		completeFails: 10,
	}
	u := testUploader(store)

	_, err := u.Upload(context.Background(), payload(25))
	require.Error(t, err)
	assert.ErrorIs(t, err, terrors.ErrCompletion)

	assert.Equal(t, 3, store.count("complete_multipart"))
	assert.Equal(t, 1, store.count("abort_multipart"))
}

func TestUpload_AbortRetriedOnTransientFailure(t *testing.T) {
	store := &fakeStore{
		partFails:  map[int]int{3: 10},
		abortFails: 1,
	}
	u := testUploader(store)

	_, err := u.Upload(context.Background(), payload(45))
	require.Error(t, err)
	assert.ErrorIs(t, err, terrors.ErrPartUpload)
	assert.Equal(t, 2, store.count("abort_multipart"))
}

func TestUpload_AbortFailureNeverMasksOriginalError(t *testing.T) {
	store := &fakeStore{
		partFails:  map[int]int{3: 10},
		abortFails: 10,
	}
	u := testUploader(store)

	_, err := u.Upload(context.Background(), payload(45))
	require.Error(t, err)
	assert.ErrorIs(t, err, terrors.ErrPartUpload)
	assert.Equal(t, 3, store.count("abort_multipart"))
}

func TestUpload_InitiateFailureNoAbort(t *testing.T) {
	store := &fakeStore{initiateFails: 10}
	u := testUploader(store)

	_, err := u.Upload(context.Background(), payload(25))
	require.Error(t, err)
	assert.ErrorIs(t, err, terrors.ErrUploadInitiation)
	assert.Zero(t, store.count("abort_multipart"))
	assert.Zero(t, store.count("upload_part"))
}

func TestUpload_TransientFailuresRecover(t *testing.T) {
	store := &fakeStore{
		partFails:     map[int]int{2: 2},
		initiateFails: 1,
		completeFails: 1,
	}
	u := testUploader(store)

	etag, err := u.Upload(context.Background(), payload(25))
	require.NoError(t, err)
	assert.Equal(t, `"final-etag"`, etag)
	assert.Equal(t, 2, store.count("initiate_multipart"))
	assert.Equal(t, 5, store.count("upload_part")) // 3 parts + 2 retries
	assert.Equal(t, 2, store.count("complete_multipart"))
}

func TestUpload_ProgressReaches100(t *testing.T) {
	store := &fakeStore{partFails: map[int]int{1: 1}}
	rec := &testutil.ProgressRecorder{}
	u := testUploader(store)
	u.Policy.Concurrency = 1
	u.Progress = rec.Record

	_, err := u.Upload(context.Background(), payload(25))
	require.NoError(t, err)

	values := rec.Values()
	require.NotEmpty(t, values)
	prev := 0.0
	for _, v := range values {
		assert.GreaterOrEqual(t, v, prev)
		assert.LessOrEqual(t, v, 100.0)
		prev = v
	}
	assert.InDelta(t, 100.0, rec.Last(), 0.001)
}

func TestProgressTracker_CallbackMayReenter(t *testing.T) {
	parts := splitParts(payload(20), 10)
	var (
		tr        *progressTracker
		reentered bool
		values    []float64
	)
	tr = newProgressTracker(parts, 20, func(pct float64) {
		values = append(values, pct)
		if !reentered {
			reentered = true
			tr.update(1, 10)
		}
	})

	tr.update(0, 10)
	assert.Equal(t, []float64{50, 100}, values)
}

func TestSplitParts(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		partSize int64
		want     []int
	}{
		{name: "exact multiple", size: 30, partSize: 10, want: []int{10, 10, 10}},
		{name: "remainder", size: 25, partSize: 10, want: []int{10, 10, 5}},
		{name: "single part", size: 5, partSize: 10, want: []int{5}},
		{name: "empty", size: 0, partSize: 10, want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := splitParts(payload(tt.size), tt.partSize)
			var sizes []int
			for i, p := range parts {
				assert.Equal(t, i+1, p.number)
				sizes = append(sizes, len(p.body))
			}
			assert.Equal(t, tt.want, sizes)
		})
	}
}
