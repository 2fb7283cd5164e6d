// Package notify reports reconciliation progress to the user and offers the
// editor reload once new extensions are installed.
package notify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Notifier surfaces human-readable messages.
// Implementations must be safe for concurrent use.
type Notifier interface {
	Info(msg string)
	Error(msg string)
	// Confirm asks the user to accept action. It returns false when the
	// user declines or cannot be asked.
	Confirm(ctx context.Context, msg, action string) (bool, error)
}

// Reloader triggers an editor reload.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Console writes to the terminal: info to Out, errors to Err.
type Console struct {
	Out io.Writer
	Err io.Writer
	In  io.Reader

	// AssumeYes accepts every prompt without asking.
	AssumeYes bool
	// Quiet suppresses Info messages. Errors and prompts are still shown.
	Quiet bool

	// Interactive reports whether prompts can be answered. Defaults to
	// checking whether stdin is a terminal.
	Interactive func() bool

	mu    sync.Mutex
	lines *lineReader
}

// stdinLines is shared by every console on os.Stdin, so consoles built one
// after another (as watch does) never race over buffered input.
var stdinLines = newLineReader(os.Stdin)

// NewConsole returns a Console on the process's standard streams.
func NewConsole() *Console {
	return &Console{Out: os.Stdout, Err: os.Stderr, In: os.Stdin, lines: stdinLines}
}

func (c *Console) Info(msg string) {
	if c.Quiet {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.Out, msg)
}

func (c *Console) Error(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.Err, "Error: %s\n", msg)
}

// Confirm prints "msg [action/N]" and reads one line. "y", "yes", the action
// itself, or its first letter accept.
func (c *Console) Confirm(ctx context.Context, msg, action string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.AssumeYes {
		fmt.Fprintf(c.Out, "%s [%s/N] %s\n", msg, action, strings.ToLower(action))
		return true, nil
	}
	if !c.interactive() {
		fmt.Fprintln(c.Out, msg)
		return false, nil
	}

	fmt.Fprintf(c.Out, "%s [%s/N] ", msg, action)

	if c.lines == nil {
		c.lines = newLineReader(c.In)
	}

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.Out)
		return false, ctx.Err()
	case line := <-c.lines.next():
		return accepts(line, action), nil
	}
}

// lineReader reads lines on a single goroutine for its whole life. A prompt
// abandoned on cancellation leaves its line for the next prompt instead of
// a stray reader holding buffered input.
type lineReader struct {
	r     io.Reader
	once  sync.Once
	lines chan string
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: r, lines: make(chan string)}
}

// next returns the channel delivering lines. It is closed at end of input,
// so a receive then yields "".
func (l *lineReader) next() <-chan string {
	l.once.Do(func() {
		go func() {
			defer close(l.lines)
			br := bufio.NewReader(l.r)
			for {
				line, err := br.ReadString('\n')
				if line != "" {
					l.lines <- line
				}
				if err != nil {
					return
				}
			}
		}()
	})
	return l.lines
}

func (c *Console) interactive() bool {
	if c.Interactive != nil {
		return c.Interactive()
	}
	f, ok := c.In.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func accepts(response, action string) bool {
	response = strings.TrimSpace(strings.ToLower(response))
	if response == "" {
		return false
	}
	action = strings.ToLower(action)
	return response == "y" || response == "yes" || response == action ||
		(len(action) > 0 && response == action[:1])
}

// ReloadHint is printed when no reload command is configured.
const ReloadHint = "Reload the editor window (Developer: Reload Window) to activate the new extensions."

// CommandReloader runs a configured command to reload the editor.
type CommandReloader struct {
	// Command is split on whitespace; empty prints ReloadHint instead.
	Command string
	Out     io.Writer

	execCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewCommandReloader returns a reloader for command, printing hints to out.
func NewCommandReloader(command string, out io.Writer) *CommandReloader {
	return &CommandReloader{Command: command, Out: out}
}

// Reload starts the command and returns without waiting for it to exit.
func (r *CommandReloader) Reload(ctx context.Context) error {
	fields := strings.Fields(r.Command)
	if len(fields) == 0 {
		fmt.Fprintln(r.Out, ReloadHint)
		return nil
	}

	execCommand := r.execCommand
	if execCommand == nil {
		execCommand = exec.CommandContext
	}
	// The reload outlives this call; ctx only guards the start.
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := execCommand(context.WithoutCancel(ctx), fields[0], fields[1:]...)
	cmd.Stdout = r.Out
	cmd.Stderr = r.Out
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start reload command %q: %w", fields[0], err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
