package reconcile

import (
	"fmt"
	"strings"
)

// Outcome is the terminal state of one reconciliation.
type Outcome string

const (
	Unchanged Outcome = "unchanged"
	Installed Outcome = "installed"
	Failed    Outcome = "failed"
)

// Result is the outcome for one package.
type Result struct {
	Package string  `json:"package"`
	Outcome Outcome `json:"outcome"`
	// Marketplace is set for extensions installed by marketplace ID.
	Marketplace     bool   `json:"marketplace,omitempty"`
	PreviousVersion string `json:"previous_version,omitempty"`
	Version         string `json:"version,omitempty"`
	// Change describes the version drift ("upgrade", "reinstall", ...).
	Change       string `json:"change,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
	Err          error  `json:"-"`
	Error        string `json:"error,omitempty"`
}

func (r *Result) fail(err error) {
	r.Outcome = Failed
	r.Err = err
	r.Error = err.Error()
}

// Report collects the results of one batch, in input order (tracked
// packages first, then marketplace extensions).
type Report struct {
	Results []Result `json:"results"`
	// Reloaded is set when the user accepted the reload prompt.
	Reloaded bool `json:"reloaded"`
}

// Installed returns the results with outcome Installed.
func (r *Report) Installed() []Result {
	return r.filter(Installed)
}

// Failed returns the results with outcome Failed.
func (r *Report) Failed() []Result {
	return r.filter(Failed)
}

// Unchanged returns the results with outcome Unchanged.
func (r *Report) Unchanged() []Result {
	return r.filter(Unchanged)
}

func (r *Report) filter(o Outcome) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Outcome == o {
			out = append(out, res)
		}
	}
	return out
}

// Result returns the result for pkg.
func (r *Report) Result(pkg string) (Result, bool) {
	for _, res := range r.Results {
		if res.Package == pkg {
			return res, true
		}
	}
	return Result{}, false
}

// failureSummary renders one error notice for every failed result.
func failureSummary(failed []Result) string {
	if len(failed) == 1 {
		return fmt.Sprintf("Error installing %s: %v", failed[0].Package, failed[0].Err)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Failed to install %d extensions:", len(failed))
	for _, res := range failed {
		fmt.Fprintf(&b, "\n  %s: %v", res.Package, res.Err)
	}
	return b.String()
}
