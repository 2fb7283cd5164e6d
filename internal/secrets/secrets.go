// Package secrets resolves tokens used by vsixsync.
//
// Secrets are resolved by checking environment variables first, then the
// [secrets] section of the user configuration. Each known secret is defined
// in the knownKeys table (specs.go); requesting an unknown key is an error.
package secrets

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tsukumogami/vsixsync/internal/userconfig"
)

// KeyInfo describes a registered secret for external consumers.
type KeyInfo struct {
	// Name is the canonical key name (e.g., "github_token").
	Name string
	// EnvVars lists environment variables checked, in priority order.
	EnvVars []string
	// Desc is a human-readable description.
	Desc string
}

// IsKnown reports whether name is a registered secret.
func IsKnown(name string) bool {
	_, ok := knownKeys[strings.ToLower(name)]
	return ok
}

// Get resolves a secret by name, checking environment variables first, then
// cfg's [secrets] section. cfg may be nil. Returns an error with guidance if
// the key is unknown or no source has a value.
func Get(cfg *userconfig.Config, name string) (string, error) {
	name = strings.ToLower(name)
	spec, ok := knownKeys[name]
	if !ok {
		return "", fmt.Errorf("unknown secret key: %q", name)
	}

	for _, env := range spec.EnvVars {
		if val := os.Getenv(env); val != "" {
			return val, nil
		}
	}

	if cfg != nil {
		if val := cfg.Secrets[name]; val != "" {
			return val, nil
		}
	}

	return "", fmt.Errorf(
		"%s not configured. Set the %s environment variable, or run 'vsixsync config set %s'",
		name, strings.Join(spec.EnvVars, " or "), name,
	)
}

// IsSet checks whether a secret is available without returning its value.
// Returns false for unknown keys.
func IsSet(cfg *userconfig.Config, name string) bool {
	_, err := Get(cfg, name)
	return err == nil
}

// Source names where a set secret comes from: the environment variable, or
// "config". Empty when the secret is not set.
func Source(cfg *userconfig.Config, name string) string {
	spec, ok := knownKeys[strings.ToLower(name)]
	if !ok {
		return ""
	}
	for _, env := range spec.EnvVars {
		if os.Getenv(env) != "" {
			return env
		}
	}
	if cfg != nil && cfg.Secrets[strings.ToLower(name)] != "" {
		return "config"
	}
	return ""
}

// KnownKeys returns metadata for all registered secrets, sorted by name.
func KnownKeys() []KeyInfo {
	keys := make([]KeyInfo, 0, len(knownKeys))
	for name, spec := range knownKeys {
		keys = append(keys, KeyInfo{
			Name:    name,
			EnvVars: spec.EnvVars,
			Desc:    spec.Desc,
		})
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Name < keys[j].Name
	})
	return keys
}
