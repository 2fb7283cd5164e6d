package httputil

import "net/http"

// HeaderTransport sets fixed headers on every outgoing request. Headers the
// caller already set on the request are left alone.
type HeaderTransport struct {
	Base    http.RoundTripper
	Headers map[string]string
}

// RoundTrip implements http.RoundTripper.
func (t *HeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	// RoundTrippers must not modify the caller's request.
	clone := req.Clone(req.Context())
	for k, v := range t.Headers {
		if clone.Header.Get(k) == "" {
			clone.Header.Set(k, v)
		}
	}
	return base.RoundTrip(clone)
}
