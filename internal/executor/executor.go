// Package executor defines the gateway the engine dispatches work through:
// a prompt executed inside a workspace by an external coding-agent
// subprocess. Concrete adapters wrap the claude-code and codex-cli binaries;
// selection is by strategy value with capability flags, never by string
// comparison at call sites.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Sentinel errors for the gateway contract.
var (
	// ErrPromptRequired is returned immediately by executors that cannot
	// start a session without an initial prompt.
	ErrPromptRequired = errors.New("prompt required")
	// ErrInactivityTimeout means the subprocess produced no output for the
	// configured window and was killed.
	ErrInactivityTimeout = errors.New("executor inactivity timeout")
)

// Mode tags what kind of session is being dispatched.
type Mode string

const (
	// ModeNormal executes a work prompt.
	ModeNormal Mode = "normal"
	// ModeBare opens a plain chat session; the prompt may be nil.
	ModeBare Mode = "bare"
	// ModeReview asks for structured review output only.
	ModeReview Mode = "review"
)

// Capabilities describes what an executor supports; callers query these
// instead of switching on executor names.
type Capabilities struct {
	// TerminalInput: the executor can run an interactive session with the
	// caller's terminal forwarded.
	TerminalInput bool
	// Batch: the executor can be handed a whole task list in one dispatch.
	Batch bool
	// Review: the executor can emit structured review findings.
	Review bool
}

// ExecContext carries everything an executor needs besides the prompt.
type ExecContext struct {
	PlanID       int
	PlanTitle    string
	WorkspaceDir string
	Mode         Mode
	// KeepOpen keeps the session attached to the terminal after the first
	// result instead of exiting after one exchange.
	KeepOpen bool
	// InactivityTimeout kills a captured session that produces no output
	// for this long. Zero disables the watchdog.
	InactivityTimeout time.Duration
}

// Result is the outcome of one executor dispatch.
type Result struct {
	// Output is the captured stdout. Empty for interactive sessions.
	Output   string
	ExitCode int
	Duration time.Duration
}

// Executor turns a prompt into code changes or review findings.
// A nil prompt is a valid empty-initial-prompt session for executors whose
// capabilities allow it; others fail fast with ErrPromptRequired.
type Executor interface {
	Name() string
	Capabilities() Capabilities
	Execute(ctx context.Context, prompt *string, ec ExecContext) (*Result, error)
}

// Registry holds the configured executors.
type Registry struct {
	byName map[string]Executor
	order  []string
}

// NewRegistry builds a registry from the given executors.
func NewRegistry(executors ...Executor) *Registry {
	r := &Registry{byName: make(map[string]Executor, len(executors))}
	for _, e := range executors {
		if _, dup := r.byName[e.Name()]; dup {
			continue
		}
		r.byName[e.Name()] = e
		r.order = append(r.order, e.Name())
	}
	return r
}

// Get returns a single executor by name.
func (r *Registry) Get(name string) (Executor, error) {
	e, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown executor %q (valid: %s)", name, strings.Join(r.validNames(), ", "))
	}
	return e, nil
}

// Select resolves an executor selection string. "both" expands to every
// registered executor capable of review, in registration order.
func (r *Registry) Select(name string) ([]Executor, error) {
	if name == "both" {
		var out []Executor
		for _, n := range r.order {
			if e := r.byName[n]; e.Capabilities().Review {
				out = append(out, e)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("no review-capable executors registered")
		}
		return out, nil
	}
	e, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return []Executor{e}, nil
}

func (r *Registry) validNames() []string {
	names := append([]string(nil), r.order...)
	names = append(names, "both")
	sort.Strings(names)
	return names
}
