// Package state persists the previous probe fingerprint between invocations.
// The whole read-compare-write span of one tick runs under an exclusive file
// lock, so a tick that overlaps a slow previous one blocks or aborts instead
// of interleaving with it.
package state

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/sarbanha/openvpn-monitor/monitor"
)

// Restrictive permissions: the fingerprint is derived from status output that
// may list client addresses.
const (
	dirPerms  = 0750
	filePerms = 0640
)

// Store is the on-disk fingerprint store, one value per file.
type Store struct {
	path string
}

var _ monitor.StateAcquirer = (*Store)(nil)

// NewStore creates a store at the given path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Acquire takes the exclusive lock, retrying until the context expires. The
// returned handle must be closed to release the lock.
func (s *Store) Acquire(ctx context.Context) (monitor.StateHandle, error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, errors.Wrap(err, "failed to create state directory")
	}
	// Best effort, as with the state file itself.
	os.Chmod(dir, dirPerms)

	l := flock.New(s.lockPath())

	locked, err := l.TryLockContext(ctx, 25*time.Millisecond)
	if err != nil {
		return nil, errors.Wrap(err, "failed to acquire lock")
	}
	if !locked {
		return nil, errors.New("lock not acquired")
	}

	return &handle{path: s.path, l: l}, nil
}

// lockPath returns the sibling lock file path, so locking never touches the
// fingerprint file itself.
func (s *Store) lockPath() string {
	return filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+".lock")
}

type handle struct {
	path string
	l    *flock.Flock
}

// Read returns the stored fingerprint, or the zero Fingerprint if the store
// is absent or unreadable. An unreadable store is treated as no prior value,
// like a first run.
func (h *handle) Read() (monitor.Fingerprint, error) {
	data, err := os.ReadFile(h.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Wrap(err, "failed to read state")
	}

	return monitor.Fingerprint(strings.TrimSpace(string(data))), nil
}

// Write overwrites the stored fingerprint atomically via a temporary file and
// rename, so a crashed tick never leaves a torn value behind.
func (h *handle) Write(f monitor.Fingerprint) error {
	tmp := h.path + ".tmp"

	if err := os.WriteFile(tmp, []byte(string(f)+"\n"), filePerms); err != nil {
		return errors.Wrap(err, "failed to write state")
	}

	if err := os.Rename(tmp, h.path); err != nil {
		return errors.Wrap(err, "failed to replace state")
	}

	// Best effort; the file may be owned by a more privileged earlier run.
	os.Chmod(h.path, filePerms)

	return nil
}

// Close releases the lock.
func (h *handle) Close() error {
	return h.l.Unlock()
}
