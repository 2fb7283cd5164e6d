// Package hosttool drives the editor's command-line interface to list and
// install extensions.
package hosttool

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/tsukumogami/vsixsync/internal/config"
	"github.com/tsukumogami/vsixsync/internal/log"
)

// pipeWaitDelay bounds how long a killed invocation may hold its output
// pipes open. The editor launcher is a script whose children inherit them.
const pipeWaitDelay = time.Second

// DefaultCommand returns the editor CLI name for goos.
func DefaultCommand(goos string) string {
	if goos == "windows" {
		return "code.cmd"
	}
	return "code"
}

// ExitStatus is the outcome of one host tool invocation.
type ExitStatus struct {
	// Code is the process exit code, or -1 when the process could not start
	// or was killed.
	Code int
	// Stderr holds everything the tool wrote to standard error.
	Stderr string
	// Err is set when the process could not start or did not exit normally.
	Err error
}

// Success reports whether the tool exited with status 0.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Err == nil
}

// AsError converts a failed status for target into an *InstallError.
// It returns nil on success.
func (s ExitStatus) AsError(target string) error {
	if s.Success() {
		return nil
	}
	return &InstallError{Path: target, Code: s.Code, Stderr: s.Stderr, Err: s.Err}
}

// InstallError reports a failed extension install.
type InstallError struct {
	Path   string // artifact path or marketplace ID
	Code   int
	Stderr string
	Err    error
}

func (e *InstallError) Error() string {
	var b strings.Builder
	if e.Code < 0 && e.Err != nil {
		fmt.Fprintf(&b, "failed to run editor CLI for %s: %v", e.Path, e.Err)
	} else {
		fmt.Fprintf(&b, "installing %s failed with exit code %d", e.Path, e.Code)
	}
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		fmt.Fprintf(&b, ": %s", msg)
	}
	return b.String()
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Tool runs the editor CLI.
type Tool struct {
	command     string
	timeout     time.Duration
	logger      log.Logger
	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Option configures a Tool.
type Option func(*Tool)

// WithCommand overrides the editor CLI. Empty keeps the platform default.
func WithCommand(name string) Option {
	return func(t *Tool) {
		if name != "" {
			t.command = name
		}
	}
}

// WithTimeout bounds each invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(t *Tool) { t.timeout = d }
}

// WithLogger sets the logger that receives the tool's stderr lines.
func WithLogger(l log.Logger) Option {
	return func(t *Tool) { t.logger = l }
}

// New creates a Tool for the current platform.
func New(opts ...Option) *Tool {
	t := &Tool{
		command:     DefaultCommand(runtime.GOOS),
		timeout:     config.GetInstallTimeout(),
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = log.Default()
	}
	return t
}

// Command returns the CLI name that will be executed.
func (t *Tool) Command() string {
	return t.command
}

// ListExtensions returns the identifiers of installed extensions, one per
// non-empty output line.
func (t *Tool) ListExtensions(ctx context.Context) ([]string, error) {
	var stdout bytes.Buffer
	status := t.run(ctx, &stdout, "--list-extensions")
	if !status.Success() {
		if status.Err != nil {
			return nil, fmt.Errorf("failed to list extensions: %w", status.Err)
		}
		return nil, fmt.Errorf("failed to list extensions: exit code %d: %s",
			status.Code, strings.TrimSpace(status.Stderr))
	}

	var ids []string
	scanner := bufio.NewScanner(&stdout)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			ids = append(ids, line)
		}
	}
	return ids, scanner.Err()
}

// Install installs the extension packaged at path.
func (t *Tool) Install(ctx context.Context, path string) ExitStatus {
	return t.run(ctx, nil, "--install-extension", path)
}

// InstallByID installs a marketplace extension by identifier.
func (t *Tool) InstallByID(ctx context.Context, id string) ExitStatus {
	return t.run(ctx, nil, "--install-extension", id)
}

func (t *Tool) run(ctx context.Context, stdout *bytes.Buffer, args ...string) ExitStatus {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	logger := t.logger.With("command", t.command, "args", strings.Join(args, " "))
	logger.Debug("running editor CLI")

	stderr := &lineCapture{logger: logger}
	cmd := t.execCommand(ctx, t.command, args...)
	cmd.WaitDelay = pipeWaitDelay
	cmd.Stderr = stderr
	if stdout != nil {
		cmd.Stdout = stdout
	}

	err := cmd.Run()
	status := ExitStatus{Stderr: stderr.String()}
	if err == nil {
		return status
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.Exited() {
		status.Code = exitErr.ExitCode()
		logger.Debug("editor CLI failed", "exit_code", status.Code)
		return status
	}

	// Start failure, signal, or context timeout.
	status.Code = -1
	status.Err = err
	if ctxErr := ctx.Err(); ctxErr != nil {
		status.Err = fmt.Errorf("%w: %w", ctxErr, err)
	}
	logger.Debug("editor CLI did not complete", "error", status.Err)
	return status
}

// lineCapture buffers stderr as it arrives and logs each complete line.
type lineCapture struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	pending []byte
	logger  log.Logger
}

func (c *lineCapture) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf.Write(p)
	c.pending = append(c.pending, p...)
	for {
		i := bytes.IndexByte(c.pending, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(c.pending[:i])); line != "" {
			c.logger.Debug("editor CLI stderr", "line", line)
		}
		c.pending = c.pending[i+1:]
	}
	return len(p), nil
}

func (c *lineCapture) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}
