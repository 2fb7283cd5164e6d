package main

import "os"

// Exit codes for different error types.
// These enable scripts to distinguish between failure modes.
const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0

	// ExitGeneral indicates a general error
	ExitGeneral = 1

	// ExitUsage indicates invalid arguments or usage error
	ExitUsage = 2

	// ExitNetwork indicates every failure was a network error
	ExitNetwork = 5

	// ExitInstallFailed indicates at least one extension failed to install
	ExitInstallFailed = 6
)

// exitWithCode exits with the specified exit code
func exitWithCode(code int) {
	os.Exit(code)
}
