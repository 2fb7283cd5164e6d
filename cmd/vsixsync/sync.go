package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/vsixsync/internal/config"
	"github.com/tsukumogami/vsixsync/internal/errmsg"
	"github.com/tsukumogami/vsixsync/internal/fetch"
	"github.com/tsukumogami/vsixsync/internal/hosttool"
	"github.com/tsukumogami/vsixsync/internal/log"
	"github.com/tsukumogami/vsixsync/internal/notify"
	"github.com/tsukumogami/vsixsync/internal/progress"
	"github.com/tsukumogami/vsixsync/internal/reconcile"
	"github.com/tsukumogami/vsixsync/internal/release"
	"github.com/tsukumogami/vsixsync/internal/secrets"
	"github.com/tsukumogami/vsixsync/internal/state"
	"github.com/tsukumogami/vsixsync/internal/userconfig"
)

var (
	syncYes  bool
	syncJSON bool
)

var syncCmd = &cobra.Command{
	Use:   "sync [package...]",
	Short: "Install missing or outdated companion extensions",
	Long: `Reconcile companion extensions with their latest releases.

Without arguments every configured package and marketplace extension is
checked. Packages whose latest release is already recorded and installed are
left alone; everything else is downloaded and installed.

Examples:
  vsixsync sync
  vsixsync sync vs-code-magnetron-bpmn
  vsixsync sync --yes --json`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		env, err := loadEnvironment(environmentOptions{
			assumeYes: syncYes,
			jsonOut:   syncJSON,
		})
		if err != nil {
			printError(err)
			exitWithCode(ExitGeneral)
		}

		code := runSync(ctx, env, args, syncJSON)
		cancel()
		exitWithCode(code)
	},
}

// runSync reconciles packages (the configured ones when none are given),
// prints the report and returns the exit code. env is closed before it
// returns so the caller may exit immediately.
func runSync(ctx context.Context, env *environment, packages []string, jsonOut bool) int {
	defer env.close()

	if len(packages) == 0 {
		packages = env.user.Packages
	}

	report := env.reconciler.Run(ctx, packages)
	if jsonOut {
		printJSON(report)
	} else {
		printSyncSummary(report, env.tool.Command())
	}
	return syncExitCode(report)
}

func init() {
	syncCmd.Flags().BoolVarP(&syncYes, "yes", "y", false, "Accept the reload prompt without asking")
	syncCmd.Flags().BoolVar(&syncJSON, "json", false, "Print the report as JSON")
}

// environment is everything a reconciling command needs, built from the
// user configuration.
type environment struct {
	user       *userconfig.Config
	paths      *config.Config
	store      state.StoreCloser
	tool       *hosttool.Tool
	reconciler *reconcile.Reconciler
}

type environmentOptions struct {
	assumeYes bool
	jsonOut   bool
	// spinner output suppresses the console and download progress.
	quietConsole bool
}

func (e *environment) close() {
	if err := e.store.Close(); err != nil {
		log.Default().Warn("failed to close state store", "error", err)
	}
}

func loadEnvironment(opts environmentOptions) (*environment, error) {
	user, err := userconfig.Load()
	if err != nil {
		return nil, err
	}
	paths, err := config.DefaultConfig()
	if err != nil {
		return nil, err
	}
	if os.Getenv(config.EnvDownloadDir) == "" && user.DownloadDir != "" {
		paths.DownloadDir = user.DownloadDir
	}

	logger := log.Default()

	// Unauthenticated lookups still work, with a lower rate limit.
	token, _ := secrets.Get(user, "github_token")

	resolver, err := release.New(user.Owner,
		release.WithBaseURL(user.APIURL),
		release.WithToken(token),
		release.WithUserAgent(user.UserAgent),
		release.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	fetchOpts := []fetch.Option{fetch.WithRedirectValidation(), fetch.WithLogger(logger)}
	showProgress := !opts.jsonOut && !opts.quietConsole && !quietFlag && user.Concurrency == 1
	if showProgress && progress.ShouldShowProgress() {
		fetchOpts = append(fetchOpts, fetch.WithProgress(os.Stdout))
	}

	tool := hosttool.New(hosttool.WithCommand(user.Editor), hosttool.WithLogger(logger))

	store, err := state.Open(paths, user.StateBackend)
	if err != nil {
		return nil, err
	}

	console := notify.NewConsole()
	console.AssumeYes = opts.assumeYes
	console.Quiet = quietFlag || opts.quietConsole
	if opts.jsonOut {
		// Keep stdout for the JSON document.
		console.Out = os.Stderr
		console.Quiet = true
	}

	r := reconcile.New(reconcile.Deps{
		Resolver:  resolver,
		Fetcher:   fetch.New(fetchOpts...),
		Installer: tool,
		Store:     store,
		Notifier:  console,
		Reloader:  notify.NewCommandReloader(user.ReloadCommand, console.Out),
	},
		reconcile.WithConcurrency(user.Concurrency),
		reconcile.WithDownloadDir(paths.DownloadDir),
		reconcile.WithKeepDownloads(user.KeepDownloads),
		reconcile.WithMarketplace(user.Marketplace),
		reconcile.WithLogger(logger),
	)

	return &environment{
		user:       user,
		paths:      paths,
		store:      store,
		tool:       tool,
		reconciler: r,
	}, nil
}

// printSyncSummary adds suggestions for failures the console notice only
// names, then a one-line tally.
func printSyncSummary(report *reconcile.Report, editor string) {
	for _, res := range report.Failed() {
		detail := errmsg.Format(res.Err, &errmsg.ErrorContext{Package: res.Package, Editor: editor})
		if detail != res.Err.Error() {
			fmt.Fprintf(os.Stderr, "\n%s: %s\n", res.Package, detail)
		}
	}

	installed, failed, unchanged := len(report.Installed()), len(report.Failed()), len(report.Unchanged())
	if installed+failed == 0 {
		printInfo("All companion extensions are up to date.")
		return
	}
	printInfof("%d installed, %d failed, %d unchanged\n", installed, failed, unchanged)
}

// syncExitCode maps a report to an exit code. A batch whose failures are all
// network errors exits with ExitNetwork so scripts can retry.
func syncExitCode(report *reconcile.Report) int {
	failed := report.Failed()
	if len(failed) == 0 {
		return ExitSuccess
	}
	for _, res := range failed {
		if !isNetworkFailure(res.Err) {
			return ExitInstallFailed
		}
	}
	return ExitNetwork
}

func isNetworkFailure(err error) bool {
	var netErr *fetch.NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var lookupErr *release.LookupError
	if errors.As(err, &lookupErr) {
		switch lookupErr.Kind {
		case release.KindNetwork, release.KindTimeout, release.KindRateLimit:
			return true
		}
	}
	return false
}
