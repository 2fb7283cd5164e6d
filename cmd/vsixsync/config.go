package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tsukumogami/vsixsync/internal/secrets"
	"github.com/tsukumogami/vsixsync/internal/userconfig"
)

// Overridden in tests.
var (
	stdinReader     io.Reader = os.Stdin
	stdinIsTerminal           = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vsixsync configuration",
	Long: `Manage vsixsync configuration settings.

Configuration is stored in ~/.vsixsync/config.toml ($VSIXSYNC_HOME/config.toml).

Examples:
  vsixsync config list
  vsixsync config get packages
  vsixsync config set packages vs-code-magnetron-bpmn,another-package
  vsixsync config set state_backend sqlite
  echo "$TOKEN" | vsixsync config set github_token`,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]

		cfg, err := userconfig.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			exitWithCode(ExitGeneral)
		}

		if secrets.IsKnown(key) {
			fmt.Println(secretStatus(cfg, key))
			return
		}

		value, ok := cfg.Get(key)
		if !ok {
			fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
			fmt.Fprintf(os.Stderr, "\nAvailable keys:\n")
			printAvailableKeys(os.Stderr)
			exitWithCode(ExitUsage)
		}

		fmt.Println(value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> [value]",
	Short: "Set a configuration value",
	Long: `Set a configuration value. List values are comma-separated.

Secrets such as github_token are read from stdin when no value is given,
so they do not end up in shell history.

Examples:
  vsixsync config set concurrency 2
  vsixsync config set keep_downloads false
  vsixsync config set reload_command "code --reuse-window"
  vsixsync config set github_token < token.txt`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]

		cfg, err := userconfig.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			exitWithCode(ExitGeneral)
		}

		if secrets.IsKnown(key) {
			value := ""
			if len(args) == 2 {
				value = args[1]
			} else if value, err = readSecretFromStdin(key); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitWithCode(ExitUsage)
			}
			cfg.SetSecret(key, value)
			if err := cfg.Save(); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
				exitWithCode(ExitGeneral)
			}
			fmt.Printf("%s = %s\n", key, secretStatus(cfg, key))
			return
		}

		if len(args) != 2 {
			fmt.Fprintf(os.Stderr, "Error: missing value for %s\n", key)
			exitWithCode(ExitUsage)
		}
		value := args[1]

		if err := cfg.Set(key, value); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			fmt.Fprintf(os.Stderr, "\nAvailable keys:\n")
			printAvailableKeys(os.Stderr)
			exitWithCode(ExitUsage)
		}

		if err := cfg.Save(); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
			exitWithCode(ExitGeneral)
		}

		stored, _ := cfg.Get(key)
		fmt.Printf("%s = %s\n", key, stored)
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration values",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := userconfig.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			exitWithCode(ExitGeneral)
		}
		printConfigValues(os.Stdout, cfg)
	},
}

func printAvailableKeys(w io.Writer) {
	keys := userconfig.AvailableKeys()
	for _, k := range userconfig.SortedKeys() {
		fmt.Fprintf(w, "  %s - %s\n", k, keys[k])
	}
	for _, k := range secrets.KnownKeys() {
		fmt.Fprintf(w, "  %s - %s (secret)\n", k.Name, k.Desc)
	}
}

func printConfigValues(w io.Writer, cfg *userconfig.Config) {
	for _, k := range userconfig.SortedKeys() {
		v, _ := cfg.Get(k)
		fmt.Fprintf(w, "%s = %s\n", k, v)
	}
	for _, k := range secrets.KnownKeys() {
		fmt.Fprintf(w, "%s = %s\n", k.Name, secretStatus(cfg, k.Name))
	}
}

// secretStatus never reveals the value.
func secretStatus(cfg *userconfig.Config, name string) string {
	switch src := secrets.Source(cfg, name); src {
	case "":
		return "(not set)"
	case "config":
		return "(set)"
	default:
		return "(set via " + src + ")"
	}
}

// readSecretFromStdin reads one line. On a terminal the input is not echoed.
func readSecretFromStdin(name string) (string, error) {
	if stdinIsTerminal() {
		fmt.Fprintf(os.Stderr, "Enter value for %s: ", name)
		if f, ok := stdinReader.(*os.File); ok {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(os.Stderr)
			if err != nil {
				return "", fmt.Errorf("failed to read from stdin: %w", err)
			}
			return secretValue(name, string(b))
		}
	}

	line, err := bufio.NewReader(stdinReader).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read from stdin: %w", err)
	}
	return secretValue(name, line)
}

func secretValue(name, line string) (string, error) {
	value := strings.TrimRight(line, "\r\n")
	if value == "" {
		return "", fmt.Errorf("no value provided for %s", name)
	}
	return value, nil
}
