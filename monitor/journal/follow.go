package journal

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// Follower tails the journal file, delivering events appended after Follow
// was called. It is used by the log subcommand; the writing side never
// depends on it.
type Follower struct {
	Events chan Event
	Errors chan error

	w *fsnotify.Watcher
	f *os.File
	r *bufio.Reader

	pending []byte
}

// Follow starts tailing the journal at path. The follower is stopped once the
// given context is canceled.
func Follow(ctx context.Context, path string) (*Follower, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open journal")
	}

	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to seek journal")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to create watcher")
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		f.Close()
		return nil, errors.Wrap(err, "failed to watch journal")
	}

	fl := &Follower{
		Events: make(chan Event),
		Errors: make(chan error),
		w:      watcher,
		f:      f,
		r:      bufio.NewReader(f),
	}

	go fl.watch(ctx)

	return fl, nil
}

func (fl *Follower) watch(ctx context.Context) {
	defer fl.w.Close()
	defer fl.f.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-fl.w.Errors:
			select {
			case fl.Errors <- errors.Wrap(err, "inotify error"):
			case <-ctx.Done():
				return
			}

		case evt := <-fl.w.Events:
			if evt.Op&fsnotify.Write == 0 {
				continue
			}
			if !fl.drain(ctx) {
				return
			}
		}
	}
}

// drain reads all complete lines appended since the last drain. A partial
// trailing line is kept pending until the rest of it is written. It reports
// false once the context is canceled.
func (fl *Follower) drain(ctx context.Context) bool {
	for {
		chunk, err := fl.r.ReadBytes('\n')
		fl.pending = append(fl.pending, chunk...)

		if err != nil {
			// io.EOF: caught up; anything else is reported and retried on
			// the next write.
			if err != io.EOF {
				select {
				case fl.Errors <- err:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		line := fl.pending
		fl.pending = nil

		ev, t, err := decodeLine(line)
		if err != nil {
			select {
			case fl.Errors <- err:
			case <-ctx.Done():
				return false
			}
			continue
		}

		select {
		case fl.Events <- Event{Time: t, Type: ev.Type(), Data: ev}:
		case <-ctx.Done():
			return false
		}
	}
}
