package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

const spinnerInterval = 100 * time.Millisecond

// Spinner shows an animated message while a blocking step runs, such as
// resolving releases for `vsixsync status --check`. Off a terminal it prints
// the message once.
type Spinner struct {
	mu       sync.Mutex
	output   io.Writer
	message  string
	done     chan struct{}
	finished chan struct{}
	started  bool
	stopped  bool
	isTTY    bool
}

// NewSpinner creates a spinner writing to output (os.Stderr when nil).
func NewSpinner(output io.Writer) *Spinner {
	if output == nil {
		output = os.Stderr
	}
	return &Spinner{
		output:   output,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		isTTY:    ShouldShowProgress(),
	}
}

// Start shows message and, on a terminal, begins animating.
func (s *Spinner) Start(message string) {
	s.mu.Lock()
	s.message = message
	if !s.isTTY {
		s.mu.Unlock()
		fmt.Fprintf(s.output, "%s\n", message)
		return
	}
	s.started = true
	s.mu.Unlock()

	go s.animate()
}

// SetMessage replaces the message while the spinner runs.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

// Stop halts the animation and clears the line. Safe to call twice.
func (s *Spinner) Stop() {
	s.stop("")
}

// StopWithMessage halts the animation and prints a final message.
func (s *Spinner) StopWithMessage(message string) {
	s.stop(message)
}

func (s *Spinner) stop(final string) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	close(s.done)
	if started {
		<-s.finished
	}

	switch {
	case s.isTTY && final != "":
		fmt.Fprintf(s.output, "\r%s\r%s\n", strings.Repeat(" ", lineWidth), final)
	case s.isTTY:
		fmt.Fprintf(s.output, "\r%s\r", strings.Repeat(" ", lineWidth))
	case final != "":
		fmt.Fprintf(s.output, "%s\n", final)
	}
}

func (s *Spinner) animate() {
	defer close(s.finished)

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for frame := 0; ; frame++ {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()

			line := fmt.Sprintf("\r%s %s", spinnerFrames[frame%len(spinnerFrames)], msg)
			if len(line) < lineWidth {
				line += strings.Repeat(" ", lineWidth-len(line))
			}
			fmt.Fprint(s.output, line)
		}
	}
}
