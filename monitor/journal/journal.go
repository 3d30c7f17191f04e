// Package journal implements the monitor's Journaler interface on top of an
// append-only file. It also provides a file locking abstraction so that
// overlapping invocations never interleave their records, a backwards reader
// for inspecting recent records, and a follower that tails the journal live.
package journal

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/diamondburned/backwardio"
	"github.com/gofrs/flock"
	"github.com/pkg/errors"
)

// ErrLockedElsewhere is returned if NewFileLockJournaler can't acquire the
// file lock.
var ErrLockedElsewhere = errors.New("file already locked elsewhere")

// FileLockJournaler is a journaler that uses a file lock (flock) to lock the
// given file and appends to it. The FileLockJournaler instance must be closed
// by the caller or by the operating system when the process exits.
//
// Reading the Journal
//
// The caller does not need to acquire the file lock in order to read the
// written journal, as each Write performed on the file is guaranteed to
// always be valid and atomic.
type FileLockJournaler struct {
	Writer
	Reader
	f *os.File
	l *flock.Flock
}

// NewFileLockJournaler creates a new file journaler if it can acquire a flock
// on the path. It returns ErrLockedElsewhere if the lock is already held.
func NewFileLockJournaler(path string) (*FileLockJournaler, error) {
	return newFileLockJournaler(nil, path)
}

// NewFileLockJournalerWait creates a new file journaler but waits until the
// lock can be acquired or until the context times out.
func NewFileLockJournalerWait(ctx context.Context, path string) (*FileLockJournaler, error) {
	return newFileLockJournaler(ctx, path)
}

func newFileLockJournaler(ctx context.Context, path string) (*FileLockJournaler, error) {
	// Ensure the directory exists.
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, errors.Wrap(err, "failed to create journal directory")
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_SYNC, 0640)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}

	l := flock.New(path)

	var locked bool
	if ctx != nil {
		locked, err = l.TryLockContext(ctx, 25*time.Millisecond)
	} else {
		locked, err = l.TryLock()
	}

	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "failed to acquire lock")
	}

	if !locked {
		f.Close()
		return nil, ErrLockedElsewhere
	}

	return &FileLockJournaler{
		Writer: Writer{f},
		Reader: Reader{backwardio.NewScanner(f)},
		f:      f,
		l:      l,
	}, nil
}

// Close closes the file and releases the flock.
func (f *FileLockJournaler) Close() error {
	f.f.Close()
	return f.l.Unlock()
}
