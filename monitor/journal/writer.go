package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sarbanha/openvpn-monitor/monitor"
)

// Event describes the JSON structure of an event as written to the journal.
type Event struct {
	Time time.Time     `json:"time"`
	Type string        `json:"type"`
	Data monitor.Event `json:"data"`
}

// Writer is a journaler that writes line-delimited JSON events into the
// writer.
type Writer struct{ w io.Writer }

var _ monitor.Journaler = Writer{}

// NewWriter creates a new journal writer.
func NewWriter(w io.Writer) Writer {
	return Writer{w}
}

// Write writes the given event into the writer. Each event is written with a
// single Write call, so records never interleave.
func (l Writer) Write(ev monitor.Event) error {
	evJSON := Event{
		Time: time.Now(),
		Type: ev.Type(),
		Data: ev,
	}

	buf := bytes.Buffer{}
	buf.Grow(512)

	if err := json.NewEncoder(&buf).Encode(evJSON); err != nil {
		return errors.Wrap(err, "failed to marshal event")
	}

	_, err := l.w.Write(buf.Bytes())
	if err != nil {
		return errors.Wrap(err, "failed to write event")
	}

	return nil
}

// HumanWriter renders events as plaintext: healthy verdicts as a single line,
// frozen verdicts as a multi-line block with the full diagnostics.
type HumanWriter struct{ w io.Writer }

var _ monitor.Journaler = HumanWriter{}

// NewHumanWriter creates a journaler writing human-readable records.
func NewHumanWriter(w io.Writer) HumanWriter {
	return HumanWriter{w}
}

// Write renders and writes one record.
func (l HumanWriter) Write(ev monitor.Event) error {
	_, err := io.WriteString(l.w, RenderEvent(time.Now(), ev))
	return errors.Wrap(err, "failed to write record")
}

// RenderEvent renders one journal event as plaintext, trailing newline
// included.
func RenderEvent(t time.Time, ev monitor.Event) string {
	ts := t.Format(time.RFC3339)

	switch ev := ev.(type) {
	case *monitor.EventFirstRun:
		return fmt.Sprintf("%s FIRST-RUN fingerprint=%s stored\n", ts, ev.Fingerprint)

	case *monitor.EventProbeHealthy:
		return fmt.Sprintf("%s SUCCESS probe fingerprint=%s changed\n", ts, ev.Fingerprint)

	case *monitor.EventWarning:
		return fmt.Sprintf("%s WARNING %s: %s\n", ts, ev.Component, ev.Error)

	case *monitor.EventAlertSent:
		return fmt.Sprintf("%s ALERT sent to %s\n", ts, strings.Join(ev.Recipients, ", "))

	case *monitor.EventServiceFrozen:
		return renderIncident(ts,
			fmt.Sprintf("status fingerprint unchanged (fingerprint=%s)", ev.Fingerprint),
			ev.Service, ev.Diagnostics, ev.RestartExitCode, ev.RestartError)

	case *monitor.EventProbeUnreachable:
		return renderIncident(ts,
			fmt.Sprintf("management endpoint unreachable: %s", ev.Error),
			ev.Service, ev.Diagnostics, ev.RestartExitCode, ev.RestartError)

	default:
		return fmt.Sprintf("%s %s\n", ts, ev.Type())
	}
}

func renderIncident(
	ts, condition, service string,
	diag monitor.Diagnostics, restartCode int, restartErr string) string {

	var b strings.Builder

	sep := strings.Repeat("=", 80)

	b.WriteString(sep + "\n")
	fmt.Fprintf(&b, "Timestamp: %s\n", ts)
	fmt.Fprintf(&b, "Condition: %s\n", condition)
	b.WriteString("\n")
	b.WriteString(diag.Render())
	b.WriteString("\n")
	fmt.Fprintf(&b, "Action: systemctl restart %s\n", service)
	fmt.Fprintf(&b, "Restart return code: %d\n", restartCode)
	if restartErr != "" {
		fmt.Fprintf(&b, "Restart error: %s\n", restartErr)
	}
	b.WriteString(sep + "\n")

	return b.String()
}

// multiWriter combines multiple journalers.
type multiWriter struct {
	writers []monitor.Journaler
}

// MultiWriter creates a journaler that writes to multiple other journalers.
// All journalers are written to even if one fails; the first error is
// returned.
func MultiWriter(ws ...monitor.Journaler) monitor.Journaler {
	return &multiWriter{ws}
}

func (w *multiWriter) Write(event monitor.Event) error {
	var firstErr error
	for _, writer := range w.writers {
		if err := writer.Write(event); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
