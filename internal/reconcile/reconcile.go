// Package reconcile brings companion extensions up to date: for each package
// it compares the recorded version with the latest release, downloads and
// installs the artifact when they differ or the extension is missing, and
// records the new version once the editor CLI reports success.
package reconcile

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/tsukumogami/vsixsync/internal/config"
	"github.com/tsukumogami/vsixsync/internal/hosttool"
	"github.com/tsukumogami/vsixsync/internal/log"
	"github.com/tsukumogami/vsixsync/internal/notify"
	"github.com/tsukumogami/vsixsync/internal/release"
	"github.com/tsukumogami/vsixsync/internal/state"
)

// DefaultConcurrency bounds how many packages are reconciled at once.
const DefaultConcurrency = 4

// Resolver finds the latest release of a package.
type Resolver interface {
	ResolveLatest(ctx context.Context, name string) (*release.Release, error)
}

// Fetcher downloads an artifact into sink.
type Fetcher interface {
	Fetch(ctx context.Context, url string, sink io.Writer) error
}

// Installer is the editor CLI.
type Installer interface {
	ListExtensions(ctx context.Context) ([]string, error)
	Install(ctx context.Context, path string) hosttool.ExitStatus
	InstallByID(ctx context.Context, id string) hosttool.ExitStatus
}

// Deps are the collaborators a Reconciler drives. Reloader may be nil, in
// which case an accepted reload prompt does nothing.
type Deps struct {
	Resolver  Resolver
	Fetcher   Fetcher
	Installer Installer
	Store     state.Store
	Notifier  notify.Notifier
	Reloader  notify.Reloader
}

// Reconciler runs reconciliation batches.
type Reconciler struct {
	deps          Deps
	concurrency   int
	paths         config.Config
	keepDownloads bool
	marketplace   []string
	logger        log.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithConcurrency bounds parallel reconciliations. Values below 1 are
// treated as 1.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n < 1 {
			n = 1
		}
		r.concurrency = n
	}
}

// WithDownloadDir sets the scratch directory for artifacts.
func WithDownloadDir(dir string) Option {
	return func(r *Reconciler) { r.paths.DownloadDir = dir }
}

// WithKeepDownloads controls whether artifacts stay on disk after an
// install attempt. The directory itself is never removed.
func WithKeepDownloads(keep bool) Option {
	return func(r *Reconciler) { r.keepDownloads = keep }
}

// WithMarketplace adds marketplace extension IDs that are installed by ID
// when missing. They are not version-tracked.
func WithMarketplace(ids []string) Option {
	return func(r *Reconciler) { r.marketplace = dedupe(ids) }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(r *Reconciler) { r.logger = l }
}

// New creates a Reconciler.
func New(deps Deps, opts ...Option) *Reconciler {
	r := &Reconciler{
		deps:          deps,
		concurrency:   DefaultConcurrency,
		keepDownloads: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.paths.DownloadDir == "" {
		r.paths.DownloadDir = defaultDownloadDir()
	}
	return r
}

func defaultDownloadDir() string {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return filepath.Join(os.TempDir(), "vscode-quarks-extensions")
	}
	return cfg.DownloadDir
}
