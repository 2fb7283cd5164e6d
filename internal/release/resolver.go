// Package release resolves the latest published release of a companion
// package from the GitHub releases API.
package release

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/tsukumogami/vsixsync/internal/config"
	"github.com/tsukumogami/vsixsync/internal/httputil"
	"github.com/tsukumogami/vsixsync/internal/log"
)

// DefaultUserAgent is sent when no user agent is configured. The releases
// API rejects requests without one.
const DefaultUserAgent = "node.js"

// Release is the latest published release of a package.
type Release struct {
	Package   string
	Version   string // tag_name, verbatim
	AssetName string
	AssetURL  string // browser_download_url of the first asset
	AssetSize int
}

// Resolver looks up releases under a single GitHub owner.
type Resolver struct {
	client        *github.Client
	owner         string
	authenticated bool
	logger        log.Logger
}

// New creates a resolver for packages published under owner.
// GITHUB_TOKEN is used for authentication unless WithToken overrides it.
func New(owner string, opts ...Option) (*Resolver, error) {
	if owner == "" {
		return nil, fmt.Errorf("release owner must not be empty")
	}

	s := settings{userAgent: DefaultUserAgent}
	for _, opt := range opts {
		opt(&s)
	}
	if !s.tokenSet {
		s.token = os.Getenv("GITHUB_TOKEN")
	}
	if s.logger == nil {
		s.logger = log.Default()
	}

	base := s.httpClient
	if base == nil {
		base = httputil.NewSecureClient(httputil.ClientOptions{Timeout: config.GetAPITimeout()})
	}

	transport := base.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	transport = &httputil.HeaderTransport{
		Base:    transport,
		Headers: map[string]string{"Content-Type": "application/json"},
	}
	if s.token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: s.token}),
			Base:   transport,
		}
	}

	client := github.NewClient(&http.Client{
		Transport:     transport,
		Timeout:       base.Timeout,
		CheckRedirect: base.CheckRedirect,
	})
	client.UserAgent = s.userAgent

	if s.baseURL != "" {
		u := s.baseURL
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		parsed, err := url.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("invalid API URL %q: %w", s.baseURL, err)
		}
		client.BaseURL = parsed
	}

	return &Resolver{
		client:        client,
		owner:         owner,
		authenticated: s.token != "",
		logger:        s.logger,
	}, nil
}

// Owner returns the GitHub owner the resolver queries.
func (r *Resolver) Owner() string {
	return r.owner
}

// ResolveLatest returns the version tag and first asset URL of the latest
// release of name. Asset ordering is taken as published; index zero wins.
func (r *Resolver) ResolveLatest(ctx context.Context, name string) (*Release, error) {
	logger := r.logger.With("package", name)
	logger.Debug("querying latest release", "owner", r.owner, "authenticated", r.authenticated)

	rel, _, err := r.client.Repositories.GetLatestRelease(ctx, r.owner, name)
	if err != nil {
		lerr := wrapError(name, err)
		logger.Debug("release lookup failed", "kind", lerr.Kind.String(), "error", err)
		return nil, lerr
	}

	tag := rel.GetTagName()
	if tag == "" {
		return nil, &LookupError{Kind: KindParsing, Package: name, Message: "release has no tag_name"}
	}
	if len(rel.Assets) == 0 {
		return nil, &LookupError{Kind: KindNoAssets, Package: name,
			Message: fmt.Sprintf("release %s has no assets", tag)}
	}

	asset := rel.Assets[0]
	if asset.GetBrowserDownloadURL() == "" {
		return nil, &LookupError{Kind: KindNoAssets, Package: name,
			Message: fmt.Sprintf("first asset of release %s has no download URL", tag)}
	}

	out := &Release{
		Package:   name,
		Version:   tag,
		AssetName: asset.GetName(),
		AssetURL:  asset.GetBrowserDownloadURL(),
		AssetSize: asset.GetSize(),
	}
	logger.Info("resolved latest release", "version", out.Version, "asset", out.AssetName)
	return out, nil
}
