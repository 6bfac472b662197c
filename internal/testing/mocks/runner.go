// Package mocks provides shared test doubles for utrun packages.
package mocks

import (
	"context"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/AndreyAkinshin/utrun/internal/process"
)

// rule scripts the result of commands matching a predicate.
type rule struct {
	match  func(process.Command) bool
	code   int
	output string
	err    error
}

// Runner implements process.Runner for testing.
// Use NewRunner() and the fluent On* methods to script exit codes; commands
// that match no rule exit with 0. Rules are checked in the order they were
// added and the first match wins.
type Runner struct {
	rules []rule

	// RunFunc, if set, is called after a rule matched (or none did) and
	// can perform side effects such as writing report files.
	RunFunc func(cmd process.Command)

	runCount int32
	mu       sync.Mutex
	calls    []process.Command
}

// NewRunner creates a runner where every command succeeds.
func NewRunner() *Runner {
	return &Runner{}
}

// OnName scripts the exit code for commands with the given executable name.
func (m *Runner) OnName(name string, code int) *Runner {
	return m.on(func(c process.Command) bool { return c.Name == name }, code, "", nil)
}

// OnContains scripts the exit code and stdout for commands whose command
// line contains substr.
func (m *Runner) OnContains(substr string, code int, output string) *Runner {
	return m.on(func(c process.Command) bool { return strings.Contains(c.String(), substr) }, code, output, nil)
}

// OnStartError makes commands with the given name fail to start.
func (m *Runner) OnStartError(name string, err error) *Runner {
	return m.on(func(c process.Command) bool { return c.Name == name }, -1, "", err)
}

func (m *Runner) on(match func(process.Command) bool, code int, output string, err error) *Runner {
	m.rules = append(m.rules, rule{match: match, code: code, output: output, err: err})
	return m
}

// Run records cmd and returns the scripted result.
func (m *Runner) Run(_ context.Context, cmd process.Command) (int, error) {
	atomic.AddInt32(&m.runCount, 1)
	m.mu.Lock()
	m.calls = append(m.calls, cmd)
	m.mu.Unlock()

	if m.RunFunc != nil {
		m.RunFunc(cmd)
	}

	for _, r := range m.rules {
		if !r.match(cmd) {
			continue
		}
		if r.err != nil {
			return -1, r.err
		}
		if r.output != "" && cmd.Stdout != nil {
			_, _ = io.WriteString(cmd.Stdout, r.output)
		}
		return r.code, nil
	}
	return 0, nil
}

// Test inspection methods

// RunCount returns the number of times Run was called.
func (m *Runner) RunCount() int32 {
	return atomic.LoadInt32(&m.runCount)
}

// Calls returns a copy of every recorded command in order.
func (m *Runner) Calls() []process.Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]process.Command, len(m.calls))
	copy(result, m.calls)
	return result
}

// CommandLines returns the recorded commands as strings.
func (m *Runner) CommandLines() []string {
	calls := m.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.String()
	}
	return lines
}

// Reset clears recorded calls but keeps the scripted rules.
func (m *Runner) Reset() {
	atomic.StoreInt32(&m.runCount, 0)
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}
