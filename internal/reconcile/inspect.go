package reconcile

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tsukumogami/vsixsync/internal/state"
)

// Status describes one package without changing anything.
type Status struct {
	Package     string `json:"package"`
	Marketplace bool   `json:"marketplace,omitempty"`
	Recorded    string `json:"recorded,omitempty"`
	HasRecord   bool   `json:"has_record"`
	// RecordedAt is set when the store tracks write times.
	RecordedAt *time.Time `json:"recorded_at,omitempty"`
	Installed  bool       `json:"installed"`
	// Latest is only filled when the latest release was checked.
	Latest       string `json:"latest,omitempty"`
	NeedsInstall bool   `json:"needs_install"`
	Err          error  `json:"-"`
	Error        string `json:"error,omitempty"`
}

// Inspect reports what Run would decide for each package. With checkLatest
// the release API is queried; otherwise only local state is consulted.
func (r *Reconciler) Inspect(ctx context.Context, packages []string, checkLatest bool) []Status {
	packages = dedupe(packages)
	installed := r.listInstalled(ctx)
	out := make([]Status, len(packages)+len(r.marketplace))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, pkg := range packages {
		i, pkg := i, pkg
		g.Go(func() error {
			out[i] = r.inspectPackage(ctx, pkg, installed, checkLatest)
			return nil
		})
	}
	_ = g.Wait()

	for j, id := range r.marketplace {
		present := isInstalled(installed, id)
		out[len(packages)+j] = Status{
			Package:      id,
			Marketplace:  true,
			Installed:    present,
			NeedsInstall: !present,
		}
	}
	return out
}

func (r *Reconciler) inspectPackage(ctx context.Context, pkg string, installed []string, checkLatest bool) Status {
	st := Status{Package: pkg, Installed: isInstalled(installed, pkg)}

	recorded, ok, err := r.deps.Store.Get(state.Key(pkg))
	if err != nil {
		st.Err = err
		st.Error = err.Error()
		return st
	}
	st.Recorded, st.HasRecord = recorded, ok
	if ts, isTimestamped := r.deps.Store.(state.Timestamped); ok && isTimestamped {
		if at, found, err := ts.UpdatedAt(state.Key(pkg)); err != nil {
			r.logger.Debug("could not read record time", "package", pkg, "error", err)
		} else if found {
			st.RecordedAt = &at
		}
	}
	st.NeedsInstall = !ok || !st.Installed

	if checkLatest {
		rel, err := r.deps.Resolver.ResolveLatest(ctx, pkg)
		if err != nil {
			st.Err = err
			st.Error = err.Error()
			return st
		}
		st.Latest = rel.Version
		st.NeedsInstall = st.NeedsInstall || rel.Version != recorded
	}
	return st
}
