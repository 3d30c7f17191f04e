package exec

import (
	"context"
	"strings"
	"sync"
)

// FakeRunner is a scripted Runner used for testing. Each call is matched
// against the Script map by the joined command line; unmatched commands
// return the Default result. Calls are recorded in order.
type FakeRunner struct {
	mutex   sync.Mutex
	Script  map[string]Result
	Default Result
	Calls   []string
}

var _ Runner = (*FakeRunner)(nil)

// NewFakeRunner creates an empty fake runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{Script: map[string]Result{}}
}

// Run records the call and returns the scripted result.
func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) Result {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	line := strings.Join(append([]string{name}, args...), " ")
	f.Calls = append(f.Calls, line)

	if res, ok := f.Script[line]; ok {
		return res
	}
	return f.Default
}

// Called reports whether the given command line was run.
func (f *FakeRunner) Called(line string) bool {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	for _, call := range f.Calls {
		if call == line {
			return true
		}
	}
	return false
}
