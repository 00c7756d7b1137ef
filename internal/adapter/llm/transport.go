package llm

import (
	"context"
	"net/http"
	"sync/atomic"
)

type statusKey struct{}

// statusHolder receives the status code of the last HTTP response made with
// a request context carrying it.
type statusHolder struct {
	code atomic.Int32
}

func withStatusHolder(ctx context.Context) (context.Context, *statusHolder) {
	h := &statusHolder{}
	return context.WithValue(ctx, statusKey{}, h), h
}

func (h *statusHolder) status() int {
	return int(h.code.Load())
}

// statusRecorder records response status codes into the holder found in the
// request context. The provider SDKs only surface status codes inside error
// strings.
type statusRecorder struct {
	base http.RoundTripper
}

func (t *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		if h, ok := req.Context().Value(statusKey{}).(*statusHolder); ok {
			h.code.Store(int32(resp.StatusCode))
		}
	}
	return resp, err
}

// NewHTTPClient returns an http.Client whose responses feed completion
// error classification. A nil base uses http.DefaultTransport.
func NewHTTPClient(base http.RoundTripper) *http.Client {
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{Transport: &statusRecorder{base: base}}
}
