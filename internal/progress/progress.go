// Package progress renders download progress and spinners on terminals.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// IsTerminalFunc reports whether a file descriptor is a terminal.
// Tests override it.
var IsTerminalFunc = term.IsTerminal

// lineWidth is the width cleared before each redraw.
const lineWidth = 80

// Writer wraps an io.Writer and redraws a one-line progress bar on output
// as bytes flow through it.
type Writer struct {
	writer    io.Writer
	output    io.Writer
	label     string
	total     int64
	written   int64
	startTime time.Time
	lastPrint time.Time
	now       func() time.Time
	mu        sync.Mutex
}

// NewWriter creates a progress writer for a download of total bytes.
// A total <= 0 shows only the byte count and speed.
func NewWriter(w io.Writer, total int64, output io.Writer) *Writer {
	return &Writer{
		writer:    w,
		output:    output,
		total:     total,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// WithLabel prefixes the progress line, typically with the package name.
func (pw *Writer) WithLabel(label string) *Writer {
	pw.label = label
	return pw
}

// Write implements io.Writer.
func (pw *Writer) Write(p []byte) (int, error) {
	n, err := pw.writer.Write(p)
	if n > 0 {
		pw.mu.Lock()
		pw.written += int64(n)
		pw.redraw(false)
		pw.mu.Unlock()
	}
	return n, err
}

// Written returns the number of bytes passed through so far.
func (pw *Writer) Written() int64 {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.written
}

// Finish draws the final state once and clears the line.
func (pw *Writer) Finish() {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	fmt.Fprintf(pw.output, "\r%s\r", strings.Repeat(" ", lineWidth))
}

// redraw prints the progress line at most ten times per second.
func (pw *Writer) redraw(force bool) {
	now := pw.now()
	if !force && now.Sub(pw.lastPrint) < 100*time.Millisecond {
		return
	}
	pw.lastPrint = now

	elapsed := now.Sub(pw.startTime).Seconds()
	if elapsed <= 0 {
		elapsed = 0.001
	}
	speed := float64(pw.written) / elapsed

	line := "\r   " + pw.line(speed)
	if len(line) < lineWidth {
		line += strings.Repeat(" ", lineWidth-len(line))
	}
	_, _ = fmt.Fprint(pw.output, line)
}

// line renders the progress text without the carriage return.
func (pw *Writer) line(speed float64) string {
	prefix := ""
	if pw.label != "" {
		prefix = pw.label + " "
	}

	if pw.total <= 0 {
		return fmt.Sprintf("%s%s (%s/s)", prefix,
			humanize.IBytes(uint64(pw.written)), humanize.IBytes(uint64(speed)))
	}

	percent := float64(pw.written) / float64(pw.total) * 100
	if percent > 100 {
		percent = 100
	}

	eta := "--:--"
	if speed > 0 {
		eta = formatDuration(float64(pw.total-pw.written) / speed)
	}

	return fmt.Sprintf("%s%s %3.0f%% (%s/%s) %s/s ETA %s",
		prefix,
		bar(percent, 30),
		percent,
		humanize.IBytes(uint64(pw.written)),
		humanize.IBytes(uint64(pw.total)),
		humanize.IBytes(uint64(speed)),
		eta,
	)
}

// bar renders "[=====>    ]" for the given percentage.
func bar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	b := strings.Repeat("=", filled)
	if filled < width {
		b += ">" + strings.Repeat(" ", width-filled-1)
	}
	return "[" + b + "]"
}

// formatDuration formats seconds as M:SS or H:MM:SS.
func formatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	if s >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s%3600)/60, s%60)
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

// ShouldShowProgress returns true when stdout is a terminal.
func ShouldShowProgress() bool {
	return IsTerminalFunc(int(os.Stdout.Fd()))
}
