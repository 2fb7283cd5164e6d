package functional

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/tsukumogami/vsixsync/internal/userconfig"
)

// aCleanEnvironment points the configuration at the fake editor and an
// unreachable release API so no scenario talks to the network by accident.
func aCleanEnvironment(ctx context.Context) (context.Context, error) {
	state := getState(ctx)
	return ctx, updateConfig(state, func(cfg *userconfig.Config) error {
		cfg.Editor = state.editor
		cfg.APIURL = "http://127.0.0.1:1/"
		cfg.Concurrency = 1
		return nil
	})
}

func updateConfig(state *testState, fn func(*userconfig.Config) error) error {
	path := filepath.Join(state.homeDir, "config.toml")
	cfg, err := userconfig.LoadFrom(path)
	if err != nil {
		return err
	}
	if err := fn(cfg); err != nil {
		return err
	}
	return cfg.SaveTo(path)
}

func theEditorLists(ctx context.Context, id string) error {
	state := getState(ctx)
	f, err := os.OpenFile(filepath.Join(state.homeDir, "extensions.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, id)
	return err
}

func theEditorFailsToInstall(ctx context.Context) error {
	state := getState(ctx)
	return os.WriteFile(filepath.Join(state.homeDir, "install-fails"), nil, 0o644)
}

func theTrackedPackagesAre(ctx context.Context, list string) error {
	return updateConfig(getState(ctx), func(cfg *userconfig.Config) error {
		return cfg.Set("packages", list)
	})
}

func theMarketplaceExtensionsAre(ctx context.Context, list string) error {
	return updateConfig(getState(ctx), func(cfg *userconfig.Config) error {
		return cfg.Set("marketplace", list)
	})
}

func theRecordedVersionIs(ctx context.Context, pkg, version string) error {
	state := getState(ctx)
	path := filepath.Join(state.homeDir, "state.json")

	records := map[string]string{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &records); err != nil {
			return err
		}
	}
	records[pkg+"-lastVersion"] = version

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func startReleaseAPI(state *testState, handler http.Handler) error {
	state.server = httptest.NewServer(handler)
	return updateConfig(state, func(cfg *userconfig.Config) error {
		return cfg.Set("api_url", state.server.URL)
	})
}

func theReleaseAPIHasNoRelease(ctx context.Context) error {
	return startReleaseAPI(getState(ctx), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
}

// theReleaseAPIPublishesBehindLoopbackRedirect serves a release whose asset
// redirects back to the test server, which the fetcher must refuse.
func theReleaseAPIPublishesBehindLoopbackRedirect(ctx context.Context, pkg, version string) error {
	state := getState(ctx)
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/"+pkg+"/releases/latest") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"tag_name":%q,"assets":[{"name":"%s.vsix","size":4,"browser_download_url":"http://%s/download/%s.vsix"}]}`,
			version, pkg, r.Host, pkg)
	})
	mux.HandleFunc("/download/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "/blob"+r.URL.Path)
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/blob/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("VSIX"))
	})
	return startReleaseAPI(state, mux)
}

// iRun executes a command string, replacing "vsixsync" with the test binary path.
func iRun(ctx context.Context, command string) (context.Context, error) {
	state := getState(ctx)
	if state == nil {
		return ctx, fmt.Errorf("no test state; is the Before hook running?")
	}

	args := strings.Fields(command)
	if len(args) > 0 && args[0] == "vsixsync" {
		args[0] = state.binPath
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = state.homeDir
	cmd.Env = append(os.Environ(),
		"VSIXSYNC_HOME="+state.homeDir,
		"VSIXSYNC_DOWNLOAD_DIR="+filepath.Join(state.homeDir, "downloads"),
		"GITHUB_TOKEN=",
		"GH_TOKEN=",
	)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	state.stdout = stdout.String()
	state.stderr = stderr.String()

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			state.exitCode = exitErr.ExitCode()
		} else {
			return ctx, fmt.Errorf("command execution failed: %w", err)
		}
	} else {
		state.exitCode = 0
	}

	return ctx, nil
}

func theExitCodeIs(ctx context.Context, expected int) error {
	state := getState(ctx)
	if state.exitCode != expected {
		return fmt.Errorf("expected exit code %d, got %d\nstdout: %s\nstderr: %s",
			expected, state.exitCode, state.stdout, state.stderr)
	}
	return nil
}

func theExitCodeIsNot(ctx context.Context, notExpected int) error {
	state := getState(ctx)
	if state.exitCode == notExpected {
		return fmt.Errorf("expected exit code to not be %d\nstdout: %s\nstderr: %s",
			notExpected, state.stdout, state.stderr)
	}
	return nil
}

func theOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stdout, text) {
		return fmt.Errorf("expected stdout not to contain %q, got:\n%s", text, state.stdout)
	}
	return nil
}

func theErrorOutputContains(ctx context.Context, text string) error {
	state := getState(ctx)
	if !strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func theErrorOutputDoesNotContain(ctx context.Context, text string) error {
	state := getState(ctx)
	if strings.Contains(state.stderr, text) {
		return fmt.Errorf("expected stderr not to contain %q, got:\n%s", text, state.stderr)
	}
	return nil
}

func theFileExists(ctx context.Context, path string) error {
	state := getState(ctx)
	fullPath := filepath.Join(state.homeDir, path)
	if _, err := os.Lstat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("expected file %q to exist", fullPath)
	}
	return nil
}

func theFileDoesNotExist(ctx context.Context, path string) error {
	state := getState(ctx)
	fullPath := filepath.Join(state.homeDir, path)
	if _, err := os.Lstat(fullPath); err == nil {
		return fmt.Errorf("expected file %q not to exist", fullPath)
	}
	return nil
}

func readInstalls(state *testState) []string {
	data, err := os.ReadFile(filepath.Join(state.homeDir, "installs.log"))
	if err != nil {
		return nil
	}
	return strings.Fields(string(data))
}

func theEditorWasAskedToInstall(ctx context.Context, arg string) error {
	state := getState(ctx)
	installs := readInstalls(state)
	for _, got := range installs {
		if got == arg || filepath.Base(got) == arg {
			return nil
		}
	}
	return fmt.Errorf("editor was not asked to install %q, installs: %v", arg, installs)
}

func theEditorWasNotAskedToInstall(ctx context.Context) error {
	if installs := readInstalls(getState(ctx)); len(installs) > 0 {
		return fmt.Errorf("expected no installs, got %v", installs)
	}
	return nil
}

// theJSONResultHas finds the entry for pkg in either a sync report
// ({"results": [...]}) or a status list ([...]) and compares one field.
func theJSONResultHas(ctx context.Context, pkg, field, want string) error {
	state := getState(ctx)

	var doc any
	if err := json.Unmarshal([]byte(state.stdout), &doc); err != nil {
		return fmt.Errorf("stdout is not JSON: %v\n%s", err, state.stdout)
	}
	entries, ok := doc.([]any)
	if report, isObj := doc.(map[string]any); isObj {
		entries, ok = report["results"].([]any)
	}
	if !ok {
		return fmt.Errorf("no result list in:\n%s", state.stdout)
	}

	for _, e := range entries {
		entry, _ := e.(map[string]any)
		if entry["package"] != pkg {
			continue
		}
		if got := fmt.Sprint(entry[field]); got != want {
			return fmt.Errorf("%s.%s = %s, want %s", pkg, field, got, want)
		}
		return nil
	}
	return fmt.Errorf("no JSON result for %q in:\n%s", pkg, state.stdout)
}
