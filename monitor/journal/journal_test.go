package journal

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sarbanha/openvpn-monitor/monitor"
)

func TestWriterReader(t *testing.T) {
	buf := bytes.Buffer{}
	w := NewWriter(&buf)

	written := []monitor.Event{
		&monitor.EventFirstRun{Fingerprint: monitor.NewFingerprint("a")},
		&monitor.EventProbeHealthy{Fingerprint: monitor.NewFingerprint("b")},
		&monitor.EventWarning{Component: "notifier", Error: "smtp down"},
	}

	for _, ev := range written {
		if err := w.Write(ev); err != nil {
			t.Fatal("write failed:", err)
		}
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))

	// The reader yields entries newest-first.
	for i := len(written) - 1; i >= 0; i-- {
		ev, ts, err := r.Read()
		if err != nil {
			t.Fatal("read failed:", err)
		}
		if !reflect.DeepEqual(ev, written[i]) {
			t.Errorf("event %d mismatch, got %#v, expected %#v", i, ev, written[i])
		}
		if ts.IsZero() {
			t.Error("timestamp not recorded")
		}
	}
}

func TestFileLockJournaler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")

	j, err := NewFileLockJournaler(path)
	if err != nil {
		t.Fatal("failed to create journaler:", err)
	}

	if _, err := NewFileLockJournaler(path); !errors.Is(err, ErrLockedElsewhere) {
		t.Errorf("expected ErrLockedElsewhere, got %v", err)
	}

	events := []monitor.Event{
		&monitor.EventFirstRun{Fingerprint: monitor.NewFingerprint("a")},
		&monitor.EventProbeHealthy{Fingerprint: monitor.NewFingerprint("b")},
	}
	for _, ev := range events {
		if err := j.Write(ev); err != nil {
			t.Fatal("write failed:", err)
		}
	}

	if err := j.Close(); err != nil {
		t.Fatal("close failed:", err)
	}

	// The released lock can be reacquired, and the file was appended, not
	// truncated.
	j, err = NewFileLockJournaler(path)
	if err != nil {
		t.Fatal("failed to reacquire journaler:", err)
	}
	defer j.Close()

	got, err := LastEvents(path, 10)
	if err != nil {
		t.Fatal("failed to read journal:", err)
	}
	if len(got) != len(events) {
		t.Fatalf("journal has %d entries, expected %d", len(got), len(events))
	}
	for i, entry := range got {
		if !reflect.DeepEqual(entry.Data, events[i]) {
			t.Errorf("entry %d mismatch, got %#v, expected %#v", i, entry.Data, events[i])
		}
	}
}

func TestLastEvents(t *testing.T) {
	t.Run("missing journal", func(t *testing.T) {
		events, err := LastEvents(filepath.Join(t.TempDir(), "none.log"), 5)
		if err != nil {
			t.Fatal("missing journal must not error:", err)
		}
		if len(events) != 0 {
			t.Errorf("expected no events, got %d", len(events))
		}
	})

	t.Run("limit", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "journal.log")

		j, err := NewFileLockJournaler(path)
		if err != nil {
			t.Fatal(err)
		}
		defer j.Close()

		for _, fp := range []string{"a", "b", "c", "d"} {
			j.Write(&monitor.EventProbeHealthy{Fingerprint: monitor.NewFingerprint(fp)})
		}

		events, err := LastEvents(path, 2)
		if err != nil {
			t.Fatal(err)
		}
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}

		// The two newest, in chronological order.
		want := []monitor.Event{
			&monitor.EventProbeHealthy{Fingerprint: monitor.NewFingerprint("c")},
			&monitor.EventProbeHealthy{Fingerprint: monitor.NewFingerprint("d")},
		}
		for i, entry := range events {
			if !reflect.DeepEqual(entry.Data, want[i]) {
				t.Errorf("entry %d mismatch, got %#v", i, entry.Data)
			}
		}
	})
}

func TestHumanWriter(t *testing.T) {
	t.Run("healthy single line", func(t *testing.T) {
		buf := bytes.Buffer{}
		w := NewHumanWriter(&buf)

		fp := monitor.NewFingerprint("v1=15,v2=30")
		if err := w.Write(&monitor.EventProbeHealthy{Fingerprint: fp}); err != nil {
			t.Fatal(err)
		}

		out := buf.String()
		if strings.Count(out, "\n") != 1 {
			t.Errorf("healthy record must be a single line:\n%s", out)
		}
		if !strings.Contains(out, "SUCCESS") || !strings.Contains(out, string(fp)) {
			t.Errorf("unexpected record %q", out)
		}
	})

	t.Run("frozen multi line", func(t *testing.T) {
		buf := bytes.Buffer{}
		w := NewHumanWriter(&buf)

		err := w.Write(&monitor.EventServiceFrozen{
			Service:     "openvpn-server@test",
			Fingerprint: monitor.NewFingerprint("v1=10,v2=20"),
			Diagnostics: monitor.Diagnostics{
				ServiceStatus: monitor.CommandOutput{
					Command: "systemctl status openvpn-server@test --no-pager -l",
					Stdout:  "active (running)",
				},
				LoadStats:    monitor.CommandOutput{Command: "load-stats", Stdout: "nclients=3"},
				StatusOutput: "v1=10,v2=20",
			},
			RestartExitCode: 0,
		})
		if err != nil {
			t.Fatal(err)
		}

		out := buf.String()
		for _, want := range []string{
			"Condition: status fingerprint unchanged",
			"active (running)",
			"nclients=3",
			"Action: systemctl restart openvpn-server@test",
			"Restart return code: 0",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("record is missing %q:\n%s", want, out)
			}
		}
	})
}

func TestFollower(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.log")

	j, err := NewFileLockJournaler(path)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	// Already-written events must not be delivered.
	j.Write(&monitor.EventFirstRun{Fingerprint: monitor.NewFingerprint("old")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fl, err := Follow(ctx, path)
	if err != nil {
		t.Fatal("follow failed:", err)
	}

	want := &monitor.EventProbeHealthy{Fingerprint: monitor.NewFingerprint("new")}
	if err := j.Write(want); err != nil {
		t.Fatal(err)
	}

	select {
	case entry := <-fl.Events:
		if !reflect.DeepEqual(entry.Data, want) {
			t.Errorf("got %#v, expected %#v", entry.Data, want)
		}
	case err := <-fl.Errors:
		t.Fatal("follower error:", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the followed event")
	}
}
