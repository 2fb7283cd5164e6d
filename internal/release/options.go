package release

import (
	"net/http"

	"github.com/tsukumogami/vsixsync/internal/log"
)

// Option configures a Resolver.
type Option func(*settings)

type settings struct {
	baseURL    string
	userAgent  string
	token      string
	tokenSet   bool
	httpClient *http.Client
	logger     log.Logger
}

// WithBaseURL points the resolver at another GitHub API, such as GitHub
// Enterprise or an httptest server. A trailing slash is added if missing.
func WithBaseURL(u string) Option {
	return func(s *settings) { s.baseURL = u }
}

// WithUserAgent sets the User-Agent sent with every request.
func WithUserAgent(ua string) Option {
	return func(s *settings) { s.userAgent = ua }
}

// WithToken authenticates requests. An empty token disables authentication
// even when GITHUB_TOKEN is set.
func WithToken(token string) Option {
	return func(s *settings) {
		s.token = token
		s.tokenSet = true
	}
}

// WithHTTPClient replaces the base HTTP client. Its transport is wrapped,
// not replaced.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithLogger sets the logger for resolution details.
func WithLogger(l log.Logger) Option {
	return func(s *settings) { s.logger = l }
}
