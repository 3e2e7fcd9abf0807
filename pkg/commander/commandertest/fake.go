// Package commandertest provides an in-memory commander.Runner that records
// every invocation instead of spawning processes.
package commandertest

import (
	"context"
	"strings"
	"sync"
	"time"

	"Micronet/pkg/commander"
)

// Responder answers a recorded invocation. Returning ok=false falls through
// to the default successful empty result.
type Responder func(argv []string) (res commander.Result, ok bool)

// Runner is a fake commander.Runner.
type Runner struct {
	mu         sync.Mutex
	nextPid    int
	responders []Responder
	Requests   []commander.Request
	Procs      []*Process
}

func NewRunner() *Runner {
	return &Runner{nextPid: 1000}
}

// Respond registers a responder; later registrations win.
func (r *Runner) Respond(fn Responder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responders = append(r.responders, fn)
}

// RespondContains answers every command whose joined argv contains substr.
func (r *Runner) RespondContains(substr string, res commander.Result) {
	r.Respond(func(argv []string) (commander.Result, bool) {
		if strings.Contains(strings.Join(argv, " "), substr) {
			return res, true
		}
		return commander.Result{}, false
	})
}

func (r *Runner) Run(_ context.Context, req commander.Request) (commander.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Requests = append(r.Requests, req)
	for i := len(r.responders) - 1; i >= 0; i-- {
		if res, ok := r.responders[i](req.Argv); ok {
			return res, nil
		}
	}
	return commander.Result{}, nil
}

func (r *Runner) Start(argv []string) (commander.Process, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &Process{pid: r.nextPid, Argv: argv}
	r.nextPid++
	r.Procs = append(r.Procs, p)
	return p, nil
}

// Lines returns every recorded invocation joined with spaces.
func (r *Runner) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Requests))
	for _, req := range r.Requests {
		out = append(out, strings.Join(req.Argv, " "))
	}
	return out
}

// Count returns how many invocations contain substr.
func (r *Runner) Count(substr string) int {
	n := 0
	for _, l := range r.Lines() {
		if strings.Contains(l, substr) {
			n++
		}
	}
	return n
}

// Reset forgets recorded invocations.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Requests = nil
}

// Process is a fake long-lived process.
type Process struct {
	pid     int
	Argv    []string
	Stopped int
}

func (p *Process) Pid() int {
	return p.pid
}

func (p *Process) Stop(_, _ time.Duration) error {
	p.Stopped++
	return nil
}
