// Package errmsg provides enhanced error message formatting with actionable suggestions.
package errmsg

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/tsukumogami/vsixsync/internal/fetch"
	"github.com/tsukumogami/vsixsync/internal/hosttool"
	"github.com/tsukumogami/vsixsync/internal/reconcile"
	"github.com/tsukumogami/vsixsync/internal/release"
)

// ErrorContext provides additional context for error formatting
type ErrorContext struct {
	Package string // The package being reconciled (for suggestions)
	Editor  string // The editor CLI in use
}

// Format returns a formatted error message with possible causes and suggestions.
// The context parameter is optional - pass nil for generic formatting.
func Format(err error, ctx *ErrorContext) string {
	if err == nil {
		return ""
	}

	errMsg := err.Error()

	var lookupErr *release.LookupError
	if errors.As(err, &lookupErr) {
		return formatLookupError(lookupErr, ctx)
	}

	var fetchErr *fetch.NetworkError
	if errors.As(err, &fetchErr) {
		return formatDownloadError(fetchErr)
	}

	var installErr *hosttool.InstallError
	if errors.As(err, &installErr) {
		return formatInstallError(installErr, ctx)
	}

	var fsErr *reconcile.FilesystemError
	if errors.As(err, &fsErr) {
		return formatFilesystemError(fsErr)
	}

	// Check for rate limit errors (string matching for unstructured errors)
	if isRateLimitError(errMsg) {
		return formatRateLimitError(errMsg)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return formatNetworkError(netErr)
	}

	if isNetworkError(errMsg) {
		return formatGenericNetworkError(errMsg)
	}

	if isPermissionError(errMsg) {
		return formatPermissionError(errMsg)
	}

	// Return original error for unrecognized types
	return errMsg
}

func formatLookupError(err *release.LookupError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	switch err.Kind {
	case release.KindNetwork, release.KindTimeout:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - Network connectivity issue\n")
		sb.WriteString("  - GitHub API temporarily unavailable\n")
		if err.Kind == release.KindTimeout {
			sb.WriteString("  - Slow connection or proxy\n")
		}

	case release.KindRateLimit:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - Too many requests to the GitHub API\n")
		sb.WriteString("  - Unauthenticated requests have lower limits\n")

	case release.KindNotFound:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The repository does not exist under the configured owner\n")
		sb.WriteString("  - The repository has no published (non-draft) release\n")

	case release.KindNoAssets:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - The latest release was published without its .vsix attached\n")

	case release.KindParsing:
		sb.WriteString("\nPossible causes:\n")
		sb.WriteString("  - api_url does not point at a GitHub-compatible API\n")
		sb.WriteString("  - A proxy answered instead of the API\n")
	}

	sb.WriteString("\nSuggestions:\n")
	if s := err.Suggestion(); s != "" {
		sb.WriteString("  - " + s + "\n")
	}
	if err.Kind == release.KindNotFound && ctx != nil && ctx.Package != "" {
		sb.WriteString(fmt.Sprintf("  - Run 'vsixsync config get owner' and check %s is published there\n", ctx.Package))
	}
	sb.WriteString("  - Try again in a few minutes\n")

	return sb.String()
}

func formatDownloadError(err *fetch.NetworkError) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	if err.Hop == 1 {
		sb.WriteString("  - The release asset URL did not redirect to storage\n")
	} else {
		sb.WriteString("  - The download host is unreachable\n")
		sb.WriteString("  - The connection dropped before the artifact was complete\n")
	}
	sb.WriteString("  - Firewall or proxy blocking the connection\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	sb.WriteString("  - Raise VSIXSYNC_DOWNLOAD_TIMEOUT for slow connections\n")
	sb.WriteString("  - Run 'vsixsync sync' again; the download restarts from scratch\n")

	return sb.String()
}

func formatInstallError(err *hosttool.InstallError, ctx *ErrorContext) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	editor := "code"
	if ctx != nil && ctx.Editor != "" {
		editor = ctx.Editor
	}

	sb.WriteString("\nPossible causes:\n")
	if err.Code < 0 {
		sb.WriteString(fmt.Sprintf("  - '%s' is not on PATH\n", editor))
		sb.WriteString("  - The install took longer than VSIXSYNC_INSTALL_TIMEOUT\n")
	} else {
		sb.WriteString("  - The downloaded package is corrupt or incompatible with this editor version\n")
		sb.WriteString("  - The editor is busy updating extensions\n")
	}

	sb.WriteString("\nSuggestions:\n")
	if err.Code < 0 {
		sb.WriteString(fmt.Sprintf("  - Install the '%s' shell command from the editor's command palette\n", editor))
		sb.WriteString("  - Or set the editor CLI: vsixsync config set editor <path>\n")
	} else {
		sb.WriteString(fmt.Sprintf("  - Try installing manually: %s --install-extension %s\n", editor, err.Path))
	}

	return sb.String()
}

func formatFilesystemError(err *reconcile.FilesystemError) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Insufficient permissions on the download directory\n")
	sb.WriteString("  - A file exists where the directory should be\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString(fmt.Sprintf("  - Check permissions: ls -la %s\n", err.Path))
	sb.WriteString("  - Choose another directory: vsixsync config set download_dir <dir>\n")

	return sb.String()
}

func formatRateLimitError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Too many requests to the API\n")
	sb.WriteString("  - Unauthenticated requests have lower limits\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Set GITHUB_TOKEN environment variable to increase rate limit\n")
	sb.WriteString("  - Wait a few minutes before retrying\n")

	return sb.String()
}

func formatNetworkError(err net.Error) string {
	var sb strings.Builder
	sb.WriteString(err.Error())
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	if err.Timeout() {
		sb.WriteString("  - Request timed out\n")
		sb.WriteString("  - Slow or unstable network connection\n")
	} else {
		sb.WriteString("  - Network connectivity issue\n")
		sb.WriteString("  - DNS resolution failure\n")
	}
	sb.WriteString("  - Firewall or proxy blocking the connection\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	sb.WriteString("  - Try again in a few minutes\n")
	if err.Timeout() {
		sb.WriteString("  - Check if you're behind a slow proxy\n")
	}

	return sb.String()
}

func formatGenericNetworkError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Network connectivity issue\n")
	sb.WriteString("  - DNS resolution failure\n")
	sb.WriteString("  - Service temporarily unavailable\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check your internet connection\n")
	sb.WriteString("  - Try again in a few minutes\n")

	return sb.String()
}

func formatPermissionError(errMsg string) string {
	var sb strings.Builder
	sb.WriteString(errMsg)
	sb.WriteString("\n")

	sb.WriteString("\nPossible causes:\n")
	sb.WriteString("  - Insufficient permissions on $VSIXSYNC_HOME directory\n")
	sb.WriteString("  - File or directory owned by different user\n")

	sb.WriteString("\nSuggestions:\n")
	sb.WriteString("  - Check permissions on ~/.vsixsync directory\n")
	sb.WriteString("  - Ensure you own the vsixsync directories: ls -la ~/.vsixsync\n")

	return sb.String()
}

// isRateLimitError checks if the error message indicates a rate limit
func isRateLimitError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "rate-limit") ||
		strings.Contains(lower, "too many requests")
}

// isNetworkError checks if the error message indicates a network issue
func isNetworkError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "network is unreachable") ||
		strings.Contains(lower, "dial tcp") ||
		strings.Contains(lower, "timeout")
}

// isPermissionError checks if the error message indicates a permission issue
func isPermissionError(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "permission denied") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "operation not permitted")
}
