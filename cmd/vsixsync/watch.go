package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tsukumogami/vsixsync/internal/config"
	"github.com/tsukumogami/vsixsync/internal/log"
)

const watchDebounce = 500 * time.Millisecond

var (
	watchYes      bool
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync now and again whenever the configuration changes",
	Long: `Run sync, then keep running and sync again whenever config.toml is
written. With --interval a sync also runs periodically to pick up new
releases. Stop with Ctrl-C.

Examples:
  vsixsync watch
  vsixsync watch --interval 1h --yes`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signalContext()
		defer cancel()

		paths, err := config.DefaultConfig()
		if err != nil {
			printError(err)
			exitWithCode(ExitGeneral)
		}
		if err := paths.EnsureDirectories(); err != nil {
			printError(err)
			exitWithCode(ExitGeneral)
		}

		if err := watchConfig(ctx, paths.ConfigFile, watchInterval, runWatchSync); err != nil {
			printError(err)
			exitWithCode(ExitGeneral)
		}
	},
}

func init() {
	watchCmd.Flags().BoolVarP(&watchYes, "yes", "y", false, "Accept the reload prompt without asking")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 0, "Also sync on this interval (0 disables)")
}

// runWatchSync rebuilds the environment so edited settings take effect.
func runWatchSync(ctx context.Context) {
	env, err := loadEnvironment(environmentOptions{assumeYes: watchYes})
	if err != nil {
		printError(err)
		return
	}
	defer env.close()

	report := env.reconciler.Run(ctx, env.user.Packages)
	printSyncSummary(report, env.tool.Command())
}

// watchConfig calls sync once, then after every burst of writes to
// configFile and on each interval tick, until ctx is done. The parent
// directory is watched so editors that replace the file are seen.
func watchConfig(ctx context.Context, configFile string, interval time.Duration, sync func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(configFile)); err != nil {
		return err
	}

	logger := log.Default()
	sync(ctx)

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	debounce := time.NewTimer(watchDebounce)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(configFile) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug("config changed", "event", ev.Op.String())
			debounce.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		case <-debounce.C:
			printInfo("Configuration changed, syncing...")
			sync(ctx)
		case <-tick:
			sync(ctx)
		}
	}
}
