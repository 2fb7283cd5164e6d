package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/google/go-github/v57/github"
)

// ErrorKind classifies release lookup failures.
type ErrorKind int

const (
	// KindNetwork is a transport failure talking to the release API.
	KindNetwork ErrorKind = iota
	// KindNotFound means the repository or its latest release does not exist.
	KindNotFound
	// KindParsing means the API answered with a body that is not a release.
	KindParsing
	// KindNoAssets means the latest release has no downloadable asset.
	KindNoAssets
	// KindRateLimit means the API refused the request because of rate limits.
	KindRateLimit
	// KindTimeout means the request did not finish within the API timeout.
	KindTimeout
	// KindHTTP is any other non-2xx answer from the API.
	KindHTTP
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindNotFound:
		return "not found"
	case KindParsing:
		return "parsing"
	case KindNoAssets:
		return "no assets"
	case KindRateLimit:
		return "rate limit"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// LookupError reports why the latest release of a package could not be
// resolved.
type LookupError struct {
	Kind    ErrorKind
	Package string
	Message string
	Err     error
}

func (e *LookupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: release lookup failed: %s: %v", e.Package, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: release lookup failed: %s", e.Package, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// Suggestion returns an actionable hint for the user, or "".
func (e *LookupError) Suggestion() string {
	switch e.Kind {
	case KindRateLimit:
		return "Set GITHUB_TOKEN to raise the API rate limit, or wait before retrying"
	case KindTimeout:
		return "Check your connection or raise VSIXSYNC_API_TIMEOUT"
	case KindNetwork:
		return "Check your internet connection and try again"
	case KindNotFound:
		return "Verify the package name and the configured owner"
	case KindNoAssets:
		return "The release must attach the packaged .vsix as its first asset"
	case KindParsing:
		return "Check api_url points at a GitHub-compatible API"
	default:
		return ""
	}
}

// ClassifyError maps an error returned by the GitHub client to an ErrorKind.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindNetwork
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return KindRateLimit
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil {
		switch respErr.Response.StatusCode {
		case http.StatusNotFound:
			return KindNotFound
		case http.StatusTooManyRequests:
			return KindRateLimit
		default:
			return KindHTTP
		}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return KindParsing
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	return KindNetwork
}

// wrapError builds a LookupError from a client error.
func wrapError(pkg string, err error) *LookupError {
	kind := ClassifyError(err)
	msg := "request failed"
	switch kind {
	case KindNotFound:
		msg = "no published release"
	case KindParsing:
		msg = "malformed release metadata"
	case KindRateLimit:
		msg = "API rate limit exceeded"
	case KindTimeout:
		msg = "request timed out"
	case KindHTTP:
		msg = "unexpected API response"
	}
	return &LookupError{Kind: kind, Package: pkg, Message: msg, Err: err}
}
