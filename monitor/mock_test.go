package monitor

import (
	"context"
	"reflect"
	"sync"
	"testing"

	"github.com/pkg/errors"
)

// mockJournal is an in-memory storage of journal events, primarily used for
// testing. A zero-value instance is a valid instance. Writes of the failOn
// event type fail instead of being stored.
type mockJournal struct {
	mutex    sync.Mutex
	journals []Event
	failOn   eventType
}

var _ Journaler = (*mockJournal)(nil)

// Write appends a journal event into the internal store.
func (m *mockJournal) Write(ev Event) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.failOn != "" && ev.Type() == m.failOn {
		return errors.New("journal write failed")
	}

	m.journals = append(m.journals, ev)
	return nil
}

// Verify verifies that the given journals slice is equal to the one stored
// internally. If strict is true, then a length check is performed, otherwise,
// the unmatched events are returned.
//
// Consecutive calls to Verify will match the remaining unmatched events.
func (m *mockJournal) Verify(t *testing.T, strict bool, journals []Event) []Event {
	t.Helper()

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if strict && len(journals) != len(m.journals) {
		t.Errorf("mismatch journal length, got %d, expected %d", len(m.journals), len(journals))
		return nil
	}

	for i, ev := range journals {
		if !reflect.DeepEqual(m.journals[i], ev) {
			t.Errorf("journal %d mismatch, got %#v, expected %#v", i, m.journals[i], ev)
		}
	}

	m.journals = m.journals[len(journals):]
	return m.journals
}

// fakeState is an in-memory StateHandle recording its use.
type fakeState struct {
	fingerprint Fingerprint
	writes      []Fingerprint
	closed      bool
	writeErr    error
}

func (f *fakeState) Read() (Fingerprint, error) { return f.fingerprint, nil }

func (f *fakeState) Write(fp Fingerprint) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.fingerprint = fp
	f.writes = append(f.writes, fp)
	return nil
}

func (f *fakeState) Close() error {
	f.closed = true
	return nil
}

// fakeStore hands out a fixed handle, or fails acquisition.
type fakeStore struct {
	st         *fakeState
	acquireErr error
}

var _ StateAcquirer = (*fakeStore)(nil)

func (f *fakeStore) Acquire(ctx context.Context) (StateHandle, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return f.st, nil
}

// fakeProber answers status and load-stats queries from canned strings.
type fakeProber struct {
	status       string
	statusErr    error
	loadStats    string
	loadStatsErr error
	queries      []string
}

var _ Prober = (*fakeProber)(nil)

func (f *fakeProber) Query(ctx context.Context, command string) (string, error) {
	f.queries = append(f.queries, command)

	switch command {
	case "status":
		return f.status, f.statusErr
	case "load-stats":
		return f.loadStats, f.loadStatsErr
	default:
		return "", nil
	}
}

// mockNotifier records alerts.
type mockNotifier struct {
	alerts []Alert
	err    error
}

var _ Notifier = (*mockNotifier)(nil)

func (m *mockNotifier) Notify(ctx context.Context, alert Alert) error {
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, alert)
	return nil
}
