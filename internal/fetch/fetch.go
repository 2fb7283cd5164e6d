// Package fetch downloads release artifacts. Release asset URLs answer with a
// single redirect to the storage host; Fetch follows exactly that one hop and
// streams the body into a caller-provided sink.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tsukumogami/vsixsync/internal/config"
	"github.com/tsukumogami/vsixsync/internal/httputil"
	"github.com/tsukumogami/vsixsync/internal/log"
	"github.com/tsukumogami/vsixsync/internal/progress"
)

// NetworkError is a transport failure at either hop of a fetch.
type NetworkError struct {
	Hop int // 1 for the asset URL, 2 for the redirect target
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("download failed at hop %d (%s): %v", e.Hop, log.SanitizeURL(e.URL), e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Fetcher downloads artifacts over HTTP(S).
type Fetcher struct {
	client        *http.Client
	logger        log.Logger
	progressOut   io.Writer
	validateHosts bool
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the HTTP client. It should not follow redirects;
// Fetch handles the one expected hop itself.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger sets the logger for download details.
func WithLogger(l log.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// WithProgress draws a progress bar on w while the second hop streams.
// Only used when the server declares a length.
func WithProgress(w io.Writer) Option {
	return func(f *Fetcher) { f.progressOut = w }
}

// WithRedirectValidation rejects redirect targets that resolve to private,
// loopback or link-local addresses.
func WithRedirectValidation() Option {
	return func(f *Fetcher) { f.validateHosts = true }
}

// New creates a Fetcher. The default client never follows redirects and
// times out after VSIXSYNC_DOWNLOAD_TIMEOUT.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = httputil.NewSecureClient(httputil.ClientOptions{
			Timeout:     config.GetDownloadTimeout(),
			NoRedirects: true,
		})
	}
	if f.logger == nil {
		f.logger = log.Default()
	}
	return f
}

// Fetch requests rawURL, follows the Location header of its response once,
// and copies the second response body into sink byte-for-byte.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, sink io.Writer) error {
	first, err := f.get(ctx, rawURL)
	if err != nil {
		return &NetworkError{Hop: 1, URL: rawURL, Err: err}
	}
	_ = first.Body.Close()

	location := first.Header.Get("Location")
	if location == "" {
		return &NetworkError{Hop: 1, URL: rawURL,
			Err: fmt.Errorf("missing redirect location (status %s)", first.Status)}
	}

	target, err := redirectTarget(first.Request.URL, location)
	if err != nil {
		return &NetworkError{Hop: 2, URL: location, Err: err}
	}
	if f.validateHosts {
		if err := httputil.ValidateHost(target.Hostname()); err != nil {
			return &NetworkError{Hop: 2, URL: target.String(), Err: err}
		}
	}

	f.logger.Debug("following artifact redirect",
		"from", log.SanitizeURL(rawURL), "to", log.SanitizeURL(target.String()))

	resp, err := f.get(ctx, target.String())
	if err != nil {
		return &NetworkError{Hop: 2, URL: target.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &NetworkError{Hop: 2, URL: target.String(), Err: fmt.Errorf("bad status: %s", resp.Status)}
	}

	out := sink
	if f.progressOut != nil && resp.ContentLength > 0 {
		pw := progress.NewWriter(sink, resp.ContentLength, f.progressOut)
		defer pw.Finish()
		out = pw
	}

	body := &trackingReader{r: resp.Body}
	n, err := io.Copy(out, body)
	if err != nil {
		if body.err != nil {
			return &NetworkError{Hop: 2, URL: target.String(), Err: err}
		}
		return fmt.Errorf("failed to write artifact: %w", err)
	}

	if resp.ContentLength > 0 && n != resp.ContentLength {
		return &NetworkError{Hop: 2, URL: target.String(),
			Err: fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)}
	}

	f.logger.Debug("artifact downloaded", "bytes", n)
	return nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept-Encoding", "identity")
	return f.client.Do(req)
}

// redirectTarget resolves location against the first request's URL. HTTPS is
// used when the resolved target begins with "https:", plain HTTP otherwise.
func redirectTarget(base *url.URL, location string) (*url.URL, error) {
	target, err := base.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("invalid redirect location: %w", err)
	}
	switch {
	case strings.HasPrefix(target.String(), "https:"):
	case target.Scheme == "http":
	default:
		return nil, fmt.Errorf("unsupported redirect scheme %q", target.Scheme)
	}
	if target.Host == "" {
		return nil, fmt.Errorf("redirect location has no host")
	}
	return target, nil
}

// trackingReader remembers the last read error so copy failures can be
// attributed to the network or to the sink.
type trackingReader struct {
	r   io.Reader
	err error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
