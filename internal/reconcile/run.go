package reconcile

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/tsukumogami/vsixsync/internal/log"
	"github.com/tsukumogami/vsixsync/internal/release"
	"github.com/tsukumogami/vsixsync/internal/state"
)

// Reload prompt shown once per batch when anything was installed.
const (
	ReloadPrompt = "Companion extensions installed, reload the editor to activate them"
	ReloadAction = "Reload"
)

// Run reconciles packages and the configured marketplace extensions, then
// reports the aggregate outcome. Failures are recorded per package and never
// stop sibling reconciliations.
func (r *Reconciler) Run(ctx context.Context, packages []string) *Report {
	packages = dedupe(packages)
	installed := r.listInstalled(ctx)

	report := &Report{Results: make([]Result, len(packages)+len(r.marketplace))}

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, pkg := range packages {
		i, pkg := i, pkg
		g.Go(func() error {
			report.Results[i] = r.reconcilePackage(ctx, pkg, installed)
			return nil
		})
	}
	for j, id := range r.marketplace {
		id, idx := id, len(packages)+j
		g.Go(func() error {
			report.Results[idx] = r.reconcileMarketplace(ctx, id, installed)
			return nil
		})
	}
	_ = g.Wait()

	r.announce(ctx, report)
	return report
}

// dedupe drops repeated names, keeping first-seen order. Two workers for the
// same package would write the same artifact file.
func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

// listInstalled asks the editor for its extensions once per batch. A failed
// listing is treated as "nothing installed".
func (r *Reconciler) listInstalled(ctx context.Context) []string {
	ids, err := r.deps.Installer.ListExtensions(ctx)
	if err != nil {
		r.logger.Warn("could not list installed extensions, treating all as missing", "error", err)
		return nil
	}
	r.logger.Debug("listed installed extensions", "count", len(ids))
	return ids
}

// isInstalled matches name against editor identifiers case-insensitively,
// either whole ("arjun.swagger-viewer") or as the part after the publisher
// ("QuarksEcosystem.vs-code-magnetron-bpmn").
func isInstalled(installed []string, name string) bool {
	for _, id := range installed {
		if strings.EqualFold(id, name) {
			return true
		}
		if n := len(id) - len(name); n > 0 && id[n-1] == '.' && strings.EqualFold(id[n:], name) {
			return true
		}
	}
	return false
}

func (r *Reconciler) reconcilePackage(ctx context.Context, pkg string, installed []string) Result {
	res := Result{Package: pkg}
	logger := r.logger.With("package", pkg)

	if err := validatePathComponent("package name", pkg); err != nil {
		res.fail(err)
		return res
	}

	recorded, hasRecord, err := r.deps.Store.Get(state.Key(pkg))
	if err != nil {
		res.fail(fmt.Errorf("failed to read recorded version: %w", err))
		return res
	}
	res.PreviousVersion = recorded

	rel, err := r.deps.Resolver.ResolveLatest(ctx, pkg)
	if err != nil {
		res.fail(err)
		return res
	}
	res.Version = rel.Version

	present := isInstalled(installed, pkg)
	if hasRecord && recorded == rel.Version && present {
		logger.Debug("up to date", "version", recorded)
		res.Outcome = Unchanged
		return res
	}

	drift := release.Compare(recorded, rel.Version)
	res.Change = drift.String()
	logger.Info("install required",
		"recorded", recorded, "latest", rel.Version, "installed", present, "change", res.Change)

	if err := validatePathComponent("version", rel.Version); err != nil {
		res.fail(err)
		return res
	}

	path, err := r.download(ctx, logger, pkg, rel)
	if err != nil {
		res.fail(err)
		return res
	}
	res.ArtifactPath = path
	if !r.keepDownloads {
		defer r.removeArtifact(logger, path)
	}

	status := r.deps.Installer.Install(ctx, path)
	if !status.Success() {
		res.fail(status.AsError(path))
		return res
	}

	if err := r.deps.Store.Set(state.Key(pkg), rel.Version); err != nil {
		res.fail(fmt.Errorf("installed but failed to record version %s: %w", rel.Version, err))
		return res
	}

	r.deps.Notifier.Info(fmt.Sprintf("%s version %s installed successfully", pkg, rel.Version))
	res.Outcome = Installed
	return res
}

// download writes the release artifact to <dir>/<pkg>-<version>.vsix.
// A partial file is removed when the download fails.
func (r *Reconciler) download(ctx context.Context, logger log.Logger, pkg string, rel *release.Release) (string, error) {
	r.deps.Notifier.Info(fmt.Sprintf("Downloading %s...", pkg))

	dir := r.paths.DownloadDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &FilesystemError{Op: "create directory", Path: dir, Err: err}
	}

	path := r.paths.ArtifactPath(pkg, rel.Version)
	f, err := os.Create(path)
	if err != nil {
		return "", &FilesystemError{Op: "create file", Path: path, Err: err}
	}

	logger.Debug("downloading artifact", "url", log.SanitizeURL(rel.AssetURL), "dest", path)
	fetchErr := r.deps.Fetcher.Fetch(ctx, rel.AssetURL, f)
	closeErr := f.Close()
	if fetchErr != nil {
		os.Remove(path)
		return "", fetchErr
	}
	if closeErr != nil {
		os.Remove(path)
		return "", &FilesystemError{Op: "write", Path: path, Err: closeErr}
	}
	return path, nil
}

func (r *Reconciler) removeArtifact(logger log.Logger, path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove artifact", "path", path, "error", err)
	}
}

func (r *Reconciler) reconcileMarketplace(ctx context.Context, id string, installed []string) Result {
	res := Result{Package: id, Marketplace: true}

	if isInstalled(installed, id) {
		res.Outcome = Unchanged
		return res
	}

	r.deps.Notifier.Info(fmt.Sprintf("Installing %s from the marketplace...", id))
	status := r.deps.Installer.InstallByID(ctx, id)
	if !status.Success() {
		res.fail(status.AsError(id))
		return res
	}

	r.deps.Notifier.Info(fmt.Sprintf("%s installed successfully", id))
	res.Outcome = Installed
	return res
}

// announce sends one error notice covering every failure and, if anything
// was installed, one reload prompt. Both may fire for the same batch.
func (r *Reconciler) announce(ctx context.Context, report *Report) {
	if failed := report.Failed(); len(failed) > 0 {
		r.deps.Notifier.Error(failureSummary(failed))
	}

	if len(report.Installed()) == 0 {
		return
	}

	accepted, err := r.deps.Notifier.Confirm(ctx, ReloadPrompt, ReloadAction)
	if err != nil {
		r.logger.Warn("reload prompt failed", "error", err)
		return
	}
	if !accepted || r.deps.Reloader == nil {
		return
	}
	if err := r.deps.Reloader.Reload(ctx); err != nil {
		r.deps.Notifier.Error(fmt.Sprintf("reload failed: %v", err))
		return
	}
	report.Reloaded = true
}
