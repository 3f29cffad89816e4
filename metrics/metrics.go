// Package metrics provides a Prometheus implementation of the client's
// request recorder. Attach it with tempbin.WithMetrics and expose
// Registry() through your HTTP handler of choice.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder collects request counts, retries, uploaded bytes and request
// latencies. The zero value is not usable; construct one with New.
type Recorder struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	bytes    prometheus.Counter
	duration *prometheus.HistogramVec
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempbin",
			Name:      "requests_total",
			Help:      "Storage requests by operation and HTTP status code.",
		}, []string{"op", "code"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tempbin",
			Name:      "retries_total",
			Help:      "Retry attempts by operation.",
		}, []string{"op"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tempbin",
			Name:      "uploaded_bytes_total",
			Help:      "Object bytes successfully uploaded.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tempbin",
			Name:      "request_duration_seconds",
			Help:      "Storage request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	r.registry.MustRegister(r.requests, r.retries, r.bytes, r.duration)
	return r
}

// Registry returns the underlying registry for scrape handlers.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveRequest records one completed HTTP exchange. A status of 0 means
// the request never produced a response.
func (r *Recorder) ObserveRequest(op string, status int, d time.Duration) {
	r.requests.WithLabelValues(op, strconv.Itoa(status)).Inc()
	r.duration.WithLabelValues(op).Observe(d.Seconds())
}

// AddRetry counts one retry attempt for op.
func (r *Recorder) AddRetry(op string) {
	r.retries.WithLabelValues(op).Inc()
}

// AddBytesUploaded counts n successfully uploaded object bytes.
func (r *Recorder) AddBytesUploaded(n int64) {
	r.bytes.Add(float64(n))
}
