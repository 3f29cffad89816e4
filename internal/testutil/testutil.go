// Package testutil provides shared test doubles for the HTTP layer.
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// HTTPClient returns an *http.Client whose transport is fn.
func HTTPClient(fn RoundTripperFunc) *http.Client {
	return &http.Client{Transport: fn}
}

// Response builds an *http.Response with the given status and body, suitable
// for returning from a RoundTripperFunc.
func Response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
	}
}

// Exchange is one recorded request paired with the response to return for it.
type Exchange struct {
	Request  *http.Request
	Body     []byte
	Status   int
	RespBody string
	Err      error
}

// ScriptedTransport returns canned responses in order and records every
// request it sees, including the request body. Safe for concurrent use.
type ScriptedTransport struct {
	mu     sync.Mutex
	script []Exchange
	next   int
	seen   []Exchange
}

// NewScriptedTransport builds a transport that plays back script in order.
// Requests beyond the script fail.
func NewScriptedTransport(script ...Exchange) *ScriptedTransport {
	return &ScriptedTransport{script: script}
}

// RoundTrip implements http.RoundTripper.
func (s *ScriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
		req.Body.Close()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.script) {
		return nil, fmt.Errorf("unexpected request %d: %s %s", s.next, req.Method, req.URL)
	}
	step := s.script[s.next]
	s.next++
	s.seen = append(s.seen, Exchange{Request: req, Body: body})

	if step.Err != nil {
		return nil, step.Err
	}
	return Response(step.Status, step.RespBody), nil
}

// Requests returns the exchanges recorded so far.
func (s *ScriptedTransport) Requests() []Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Exchange(nil), s.seen...)
}

// ProgressRecorder collects progress callback values for assertions.
type ProgressRecorder struct {
	mu     sync.Mutex
	values []float64
}

// Record appends a value; pass the method value as a tbtypes.ProgressFunc.
func (p *ProgressRecorder) Record(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, percent)
}

// Values returns a copy of everything recorded so far.
func (p *ProgressRecorder) Values() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.values...)
}

// Last returns the most recent value, or 0 when nothing was recorded.
func (p *ProgressRecorder) Last() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.values) == 0 {
		return 0
	}
	return p.values[len(p.values)-1]
}
