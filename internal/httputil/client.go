package httputil

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// ClientOptions configures the HTTP client.
type ClientOptions struct {
	// Timeout is the overall request timeout, body included. Default: 30s.
	Timeout time.Duration

	// DialTimeout is the TCP dial timeout. Default: 30s.
	DialTimeout time.Duration

	// TLSHandshakeTimeout is the TLS handshake timeout. Default: 10s.
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout is the time to wait for response headers. Default: 10s.
	ResponseHeaderTimeout time.Duration

	// MaxRedirects is the maximum redirect depth when redirects are followed. Default: 10.
	MaxRedirects int

	// NoRedirects hands 3xx responses back to the caller instead of following
	// them. The artifact fetcher resolves its single redirect hop itself.
	NoRedirects bool

	// EnableCompression enables the Accept-Encoding header. Default: false,
	// artifacts are streamed to disk byte-for-byte.
	EnableCompression bool

	// MaxIdleConns is the maximum number of idle connections. Default: 10.
	MaxIdleConns int

	// IdleConnTimeout is how long idle connections stay open. Default: 90s.
	IdleConnTimeout time.Duration
}

// DefaultOptions returns the default client options.
func DefaultOptions() ClientOptions {
	return ClientOptions{
		Timeout:               30 * time.Second,
		DialTimeout:           30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		MaxRedirects:          10,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}

// withDefaults fills zero values from DefaultOptions.
func (o ClientOptions) withDefaults() ClientOptions {
	d := DefaultOptions()
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
	if o.DialTimeout == 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.TLSHandshakeTimeout == 0 {
		o.TLSHandshakeTimeout = d.TLSHandshakeTimeout
	}
	if o.ResponseHeaderTimeout == 0 {
		o.ResponseHeaderTimeout = d.ResponseHeaderTimeout
	}
	if o.MaxRedirects == 0 {
		o.MaxRedirects = d.MaxRedirects
	}
	if o.MaxIdleConns == 0 {
		o.MaxIdleConns = d.MaxIdleConns
	}
	if o.IdleConnTimeout == 0 {
		o.IdleConnTimeout = d.IdleConnTimeout
	}
	return o
}

// NewSecureClient creates an HTTP client with timeouts on every phase.
//
// When redirects are followed they must stay on HTTPS, are limited to
// MaxRedirects hops, and may not target private, loopback or link-local
// addresses (all resolved IPs are checked). With NoRedirects the first
// response is always returned as-is.
func NewSecureClient(opts ClientOptions) *http.Client {
	opts = opts.withDefaults()

	checkRedirect := makeRedirectChecker(opts.MaxRedirects)
	if opts.NoRedirects {
		checkRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy:              http.ProxyFromEnvironment,
			DisableCompression: !opts.EnableCompression,
			DialContext: (&net.Dialer{
				Timeout:   opts.DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
			ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          opts.MaxIdleConns,
			IdleConnTimeout:       opts.IdleConnTimeout,
		},
		CheckRedirect: checkRedirect,
	}
}

// makeRedirectChecker creates a redirect validation function.
func makeRedirectChecker(maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if req.URL.Scheme != "https" {
			return fmt.Errorf("redirect to non-HTTPS URL is not allowed: %s", req.URL)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("too many redirects")
		}
		return ValidateHost(req.URL.Hostname())
	}
}
