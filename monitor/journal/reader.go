package journal

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/diamondburned/backwardio"
	"github.com/pkg/errors"
	"github.com/sarbanha/openvpn-monitor/monitor"
)

// Reader reads journal entries newest-first.
type Reader struct {
	b *backwardio.Scanner
}

// NewReader creates a new journal reader.
func NewReader(r io.ReadSeeker) *Reader {
	return &Reader{backwardio.NewScanner(r)}
}

// Read reads a single entry, starting from the end of the file. An EOF error
// is returned once the file has been fully consumed.
func (r Reader) Read() (monitor.Event, time.Time, error) {
	var line []byte
	var err error

	for {
		line, err = r.b.ReadUntil('\n')
		if err != nil {
			return nil, time.Time{}, err
		}
		if len(line) > 0 {
			break
		}
	}

	return decodeLine(line)
}

// decodeLine decodes one JSON journal line into its typed event.
func decodeLine(line []byte) (monitor.Event, time.Time, error) {
	var rawEvent struct {
		Time time.Time       `json:"time"`
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(line, &rawEvent); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "failed to decode JSON")
	}

	event := monitor.NewEvent(rawEvent.Type)
	if event == nil {
		return nil, time.Time{}, fmt.Errorf("unknown event %q", rawEvent.Type)
	}

	if err := json.Unmarshal(rawEvent.Data, event); err != nil {
		return nil, time.Time{}, errors.Wrap(err, "failed to decode event data")
	}

	return event, rawEvent.Time, nil
}

// LastEvents reads up to n most recent entries from the journal at path and
// returns them in chronological order. A missing journal yields no entries.
func LastEvents(path string, n int) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to open journal")
	}
	defer f.Close()

	r := NewReader(f)

	var events []Event
	for len(events) < n {
		ev, t, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}

		events = append(events, Event{Time: t, Type: ev.Type(), Data: ev})
	}

	// Reverse into chronological order.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}

	return events, nil
}
