package notify

import (
	"context"
	"sync"
)

// Prompt is one Confirm call seen by a Recorder.
type Prompt struct {
	Message string
	Action  string
}

// Recorder is an in-memory Notifier and Reloader for tests and dry runs.
type Recorder struct {
	// Answer is returned from every Confirm.
	Answer bool
	// ReloadErr is returned from every Reload.
	ReloadErr error

	mu      sync.Mutex
	infos   []string
	errors  []string
	prompts []Prompt
	reloads int
}

func (r *Recorder) Info(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, msg)
}

func (r *Recorder) Error(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *Recorder) Confirm(_ context.Context, msg, action string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, Prompt{Message: msg, Action: action})
	return r.Answer, nil
}

func (r *Recorder) Reload(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reloads++
	return r.ReloadErr
}

// Infos returns a copy of the recorded info messages.
func (r *Recorder) Infos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.infos...)
}

// Errors returns a copy of the recorded error messages.
func (r *Recorder) Errors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

// Prompts returns a copy of the recorded prompts.
func (r *Recorder) Prompts() []Prompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Prompt(nil), r.prompts...)
}

// Reloads returns how many times Reload was called.
func (r *Recorder) Reloads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reloads
}
