package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const (
	// EnvHome overrides the default vsixsync home directory (~/.vsixsync)
	EnvHome = "VSIXSYNC_HOME"

	// EnvDownloadDir overrides the scratch directory for downloaded artifacts
	EnvDownloadDir = "VSIXSYNC_DOWNLOAD_DIR"

	// EnvAPITimeout configures the release metadata request timeout
	EnvAPITimeout = "VSIXSYNC_API_TIMEOUT"

	// EnvDownloadTimeout configures the artifact download timeout
	EnvDownloadTimeout = "VSIXSYNC_DOWNLOAD_TIMEOUT"

	// EnvInstallTimeout configures how long the host tool may run
	EnvInstallTimeout = "VSIXSYNC_INSTALL_TIMEOUT"

	// DefaultAPITimeout is the default timeout for release lookups (30 seconds)
	DefaultAPITimeout = 30 * time.Second

	// DefaultDownloadTimeout is the default timeout for one artifact download (10 minutes)
	DefaultDownloadTimeout = 10 * time.Minute

	// DefaultInstallTimeout is the default timeout for one host tool invocation (5 minutes)
	DefaultInstallTimeout = 5 * time.Minute

	// scratchDirName is the directory downloaded .vsix files are written to.
	scratchDirName = "vscode-quarks-extensions"
)

// durationSetting describes an environment-configurable duration with bounds.
type durationSetting struct {
	env      string
	def      time.Duration
	min, max time.Duration
}

// get reads the setting from the environment, falling back to the default for
// unset or malformed values and clamping to [min, max].
func (s durationSetting) get() time.Duration {
	envValue := os.Getenv(s.env)
	if envValue == "" {
		return s.def
	}

	d, err := time.ParseDuration(envValue)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: invalid %s value %q, using default %v\n",
			s.env, envValue, s.def)
		return s.def
	}

	if d < s.min {
		fmt.Fprintf(os.Stderr, "Warning: %s too low (%v), using minimum %v\n", s.env, d, s.min)
		return s.min
	}
	if d > s.max {
		fmt.Fprintf(os.Stderr, "Warning: %s too high (%v), using maximum %v\n", s.env, d, s.max)
		return s.max
	}
	return d
}

// GetAPITimeout returns the release lookup timeout from VSIXSYNC_API_TIMEOUT.
// Accepts duration strings like "30s" or "1m"; clamped to 1s..10m.
func GetAPITimeout() time.Duration {
	return durationSetting{EnvAPITimeout, DefaultAPITimeout, time.Second, 10 * time.Minute}.get()
}

// GetDownloadTimeout returns the artifact download timeout from
// VSIXSYNC_DOWNLOAD_TIMEOUT, clamped to 10s..1h.
func GetDownloadTimeout() time.Duration {
	return durationSetting{EnvDownloadTimeout, DefaultDownloadTimeout, 10 * time.Second, time.Hour}.get()
}

// GetInstallTimeout returns the host tool timeout from
// VSIXSYNC_INSTALL_TIMEOUT, clamped to 10s..30m.
func GetInstallTimeout() time.Duration {
	return durationSetting{EnvInstallTimeout, DefaultInstallTimeout, 10 * time.Second, 30 * time.Minute}.get()
}

// Config holds vsixsync paths
type Config struct {
	HomeDir     string // $VSIXSYNC_HOME
	StateFile   string // $VSIXSYNC_HOME/state.json
	StateDB     string // $VSIXSYNC_HOME/state.db
	ConfigFile  string // $VSIXSYNC_HOME/config.toml
	DownloadDir string // scratch directory for .vsix artifacts
}

// DefaultConfig returns the default configuration
func DefaultConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	appHome := os.Getenv(EnvHome)
	if appHome == "" {
		appHome = filepath.Join(home, ".vsixsync")
	}

	downloadDir := os.Getenv(EnvDownloadDir)
	if downloadDir == "" {
		downloadDir = defaultDownloadDir(runtime.GOOS, home, os.TempDir())
	}

	return &Config{
		HomeDir:     appHome,
		StateFile:   filepath.Join(appHome, "state.json"),
		StateDB:     filepath.Join(appHome, "state.db"),
		ConfigFile:  filepath.Join(appHome, "config.toml"),
		DownloadDir: downloadDir,
	}, nil
}

// defaultDownloadDir places artifacts under the user's home directory on
// Unix-like systems and under the OS temp directory on Windows.
func defaultDownloadDir(goos, home, tmp string) string {
	if goos == "windows" {
		return filepath.Join(tmp, scratchDirName)
	}
	return filepath.Join(home, ".quarks", scratchDirName)
}

// EnsureDirectories creates the home directory. The download directory is
// created lazily by the reconciler right before a download.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.HomeDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", c.HomeDir, err)
	}
	return nil
}

// ArtifactPath returns the download location for a package version.
func (c *Config) ArtifactPath(name, version string) string {
	return filepath.Join(c.DownloadDir, fmt.Sprintf("%s-%s.vsix", name, version))
}
