package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tsukumogami/vsixsync/internal/progress"
	"github.com/tsukumogami/vsixsync/internal/reconcile"
)

var (
	statusCheck bool
	statusJSON  bool
)

var statusCmd = &cobra.Command{
	Use:   "status [package...]",
	Short: "Show recorded and installed companion extensions",
	Long: `Show what sync would do without installing anything.

By default only the local version records and the editor's extension list
are consulted. With --check the latest release of each package is resolved
as well.

Examples:
  vsixsync status
  vsixsync status --check --json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		env, err := loadEnvironment(environmentOptions{jsonOut: statusJSON, quietConsole: true})
		if err != nil {
			printError(err)
			exitWithCode(ExitGeneral)
		}
		runStatus(ctx, env, args)
	},
}

// runStatus prints the status of packages (the configured ones when none
// are given) and closes env.
func runStatus(ctx context.Context, env *environment, packages []string) {
	defer env.close()

	if len(packages) == 0 {
		packages = env.user.Packages
	}

	var spinner *progress.Spinner
	if statusCheck && !statusJSON && !quietFlag {
		spinner = progress.NewSpinner(os.Stderr)
		spinner.Start("Resolving latest releases...")
	}
	statuses := env.reconciler.Inspect(ctx, packages, statusCheck)
	if spinner != nil {
		spinner.Stop()
	}

	if statusJSON {
		printJSON(statuses)
		return
	}
	printStatusTable(os.Stdout, statuses)
}

func init() {
	statusCmd.Flags().BoolVar(&statusCheck, "check", false, "Resolve the latest release of each package")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print statuses as JSON")
}

// printStatusTable writes one row per status. The UPDATED column only
// appears when the store records write times.
func printStatusTable(w io.Writer, statuses []reconcile.Status) {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No companion extensions configured.")
		return
	}

	withTimes := false
	for _, st := range statuses {
		if st.RecordedAt != nil {
			withTimes = true
			break
		}
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "EXTENSION\tRECORDED\tLATEST\tINSTALLED\tACTION"
	if withTimes {
		header = "EXTENSION\tRECORDED\tUPDATED\tLATEST\tINSTALLED\tACTION"
	}
	fmt.Fprintln(tw, header)
	for _, st := range statuses {
		if withTimes {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", st.Package, orDash(st.Recorded),
				recordedAge(st.RecordedAt), orDash(st.Latest), yesNo(st.Installed), statusAction(st))
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", st.Package, orDash(st.Recorded),
			orDash(st.Latest), yesNo(st.Installed), statusAction(st))
	}
	tw.Flush()
}

func recordedAge(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return humanize.Time(*t)
}

func statusAction(st reconcile.Status) string {
	switch {
	case st.Err != nil:
		return "error: " + st.Error
	case st.NeedsInstall:
		return "install"
	default:
		return "-"
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
