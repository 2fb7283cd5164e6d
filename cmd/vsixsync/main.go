package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tsukumogami/vsixsync/internal/buildinfo"
	"github.com/tsukumogami/vsixsync/internal/log"
)

var (
	quietFlag   bool
	verboseFlag bool
	debugFlag   bool
)

var rootCmd = &cobra.Command{
	Use:   "vsixsync",
	Short: "Keep companion editor extensions installed and up to date",
	Long: `vsixsync installs the companion extensions a host extension depends on.

Tracked packages are resolved against their latest GitHub release, downloaded
as .vsix artifacts and installed through the editor's command-line tool.
Marketplace extensions are installed by ID when they are missing.`,
	Version: buildinfo.Version(),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetDefault(log.NewText(os.Stderr, determineLogLevel()))
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Only show errors")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Show informational log output")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Show debug log output")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
}

// determineLogLevel picks the log level from flags first, then from
// VSIXSYNC_DEBUG, VSIXSYNC_VERBOSE and VSIXSYNC_QUIET. Defaults to WARN.
func determineLogLevel() slog.Level {
	switch {
	case debugFlag:
		return slog.LevelDebug
	case verboseFlag:
		return slog.LevelInfo
	case quietFlag:
		return slog.LevelError
	}

	switch {
	case isTruthy(os.Getenv("VSIXSYNC_DEBUG")):
		return slog.LevelDebug
	case isTruthy(os.Getenv("VSIXSYNC_VERBOSE")):
		return slog.LevelInfo
	case isTruthy(os.Getenv("VSIXSYNC_QUIET")):
		return slog.LevelError
	}
	return slog.LevelWarn
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// signalContext is cancelled on Ctrl-C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitWithCode(ExitUsage)
	}
}
