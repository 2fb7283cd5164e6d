// Package userconfig provides user configuration management for vsixsync.
// Configuration is stored in ~/.vsixsync/config.toml and can be modified
// via the `vsixsync config` command.
package userconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/tsukumogami/vsixsync/internal/config"
)

// State backends accepted by the state_backend key.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config represents user-configurable settings.
type Config struct {
	// Owner is the GitHub organization that publishes the companion packages.
	Owner string `toml:"owner"`

	// Packages are the companion packages tracked by release version. Each
	// name is both the GitHub repository and the editor extension identifier.
	Packages []string `toml:"packages"`

	// Marketplace lists marketplace extension IDs that are installed by ID
	// when missing. They are not version-tracked.
	Marketplace []string `toml:"marketplace"`

	// APIURL is the GitHub API base URL.
	APIURL string `toml:"api_url"`

	// UserAgent is sent with every release lookup; the API rejects requests
	// without one.
	UserAgent string `toml:"user_agent"`

	// Editor overrides the host command-line tool ("code" / "code.cmd").
	Editor string `toml:"editor"`

	// StateBackend selects where installed versions are recorded.
	StateBackend string `toml:"state_backend"`

	// Concurrency bounds how many packages are reconciled at once.
	Concurrency int `toml:"concurrency"`

	// DownloadDir overrides the scratch directory for downloaded artifacts.
	// VSIXSYNC_DOWNLOAD_DIR takes precedence.
	DownloadDir string `toml:"download_dir"`

	// KeepDownloads keeps .vsix artifacts in the download directory after
	// an install attempt.
	KeepDownloads bool `toml:"keep_downloads"`

	// ReloadCommand runs when the user accepts the reload prompt. Empty
	// prints a hint instead.
	ReloadCommand string `toml:"reload_command"`

	// Secrets holds tokens set with `vsixsync config set <secret>`.
	// Environment variables take precedence (see internal/secrets).
	Secrets map[string]string `toml:"secrets,omitempty"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Owner:         "QuarksEcosystem",
		Packages:      []string{"vs-code-magnetron-bpmn"},
		Marketplace:   []string{"arjun.swagger-viewer"},
		APIURL:        "https://api.github.com/",
		UserAgent:     "node.js",
		StateBackend:  BackendJSON,
		Concurrency:   4,
		KeepDownloads: true,
	}
}

// Load reads the config file and returns the configuration.
// Returns default values if the file doesn't exist.
// Returns an error only for file parsing issues, not missing files.
func Load() (*Config, error) {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(cfg.ConfigFile)
}

// LoadFrom reads config from a specific file path.
func LoadFrom(path string) (*Config, error) {
	userCfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return userCfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), userCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := userCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return userCfg, nil
}

// Validate checks values that toml decoding cannot.
func (c *Config) Validate() error {
	switch c.StateBackend {
	case BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("state_backend must be %q or %q, got %q", BackendJSON, BackendSQLite, c.StateBackend)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Owner == "" && len(c.Packages) > 0 {
		return fmt.Errorf("owner is required when packages are configured")
	}
	return nil
}

// Save writes the configuration to the config file.
func (c *Config) Save() error {
	cfg, err := config.DefaultConfig()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	return c.SaveTo(cfg.ConfigFile)
}

// SaveTo writes config to a specific file path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold secrets.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Get returns the value of a config key as a string. Lists are joined
// with commas. Returns empty string and false if the key doesn't exist.
func (c *Config) Get(key string) (string, bool) {
	switch strings.ToLower(key) {
	case "owner":
		return c.Owner, true
	case "packages":
		return strings.Join(c.Packages, ","), true
	case "marketplace":
		return strings.Join(c.Marketplace, ","), true
	case "api_url":
		return c.APIURL, true
	case "user_agent":
		return c.UserAgent, true
	case "editor":
		return c.Editor, true
	case "state_backend":
		return c.StateBackend, true
	case "concurrency":
		return strconv.Itoa(c.Concurrency), true
	case "download_dir":
		return c.DownloadDir, true
	case "keep_downloads":
		return strconv.FormatBool(c.KeepDownloads), true
	case "reload_command":
		return c.ReloadCommand, true
	default:
		return "", false
	}
}

// Set updates a config value from a string.
// Returns an error if the key doesn't exist or the value is invalid.
func (c *Config) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "owner":
		if value == "" {
			return fmt.Errorf("invalid value for owner: must not be empty")
		}
		c.Owner = value
	case "packages":
		c.Packages = splitList(value)
	case "marketplace":
		c.Marketplace = splitList(value)
	case "api_url":
		if !strings.HasPrefix(value, "https://") && !strings.HasPrefix(value, "http://") {
			return fmt.Errorf("invalid value for api_url: must be an http(s) URL")
		}
		if !strings.HasSuffix(value, "/") {
			value += "/"
		}
		c.APIURL = value
	case "user_agent":
		if value == "" {
			return fmt.Errorf("invalid value for user_agent: must not be empty")
		}
		c.UserAgent = value
	case "editor":
		c.Editor = value
	case "state_backend":
		v := strings.ToLower(value)
		if v != BackendJSON && v != BackendSQLite {
			return fmt.Errorf("invalid value for state_backend: must be %s or %s", BackendJSON, BackendSQLite)
		}
		c.StateBackend = v
	case "concurrency":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid value for concurrency: must be a positive integer")
		}
		c.Concurrency = n
	case "download_dir":
		c.DownloadDir = value
	case "keep_downloads":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for keep_downloads: must be true or false")
		}
		c.KeepDownloads = b
	case "reload_command":
		c.ReloadCommand = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// SetSecret stores a secret value. An empty value removes it.
func (c *Config) SetSecret(name, value string) {
	name = strings.ToLower(name)
	if value == "" {
		delete(c.Secrets, name)
		return
	}
	if c.Secrets == nil {
		c.Secrets = make(map[string]string)
	}
	c.Secrets[name] = value
}

// splitList turns "a, b,,c" into [a b c]. The result is never nil so an
// emptied list is saved as [] instead of falling back to the default.
func splitList(value string) []string {
	out := []string{}
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// AvailableKeys returns a list of all configurable keys with descriptions.
func AvailableKeys() map[string]string {
	return map[string]string{
		"owner":          "GitHub organization publishing the companion packages",
		"packages":       "Comma-separated companion packages tracked by release",
		"marketplace":    "Comma-separated marketplace extension IDs to install when missing",
		"api_url":        "GitHub API base URL",
		"user_agent":     "User-Agent header sent to the release API",
		"editor":         "Editor command-line tool (default: code, code.cmd on Windows)",
		"state_backend":  "Where installed versions are recorded (json/sqlite)",
		"concurrency":    "Maximum packages reconciled at once",
		"download_dir":   "Directory for downloaded .vsix files",
		"keep_downloads": "Keep downloaded .vsix files after install (true/false)",
		"reload_command": "Command run when accepting the reload prompt",
	}
}

// SortedKeys returns AvailableKeys' names in sorted order.
func SortedKeys() []string {
	keys := AvailableKeys()
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
