package git

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"gitpaste/pkg/domain"
)

// FileLock is an advisory exclusive flock on a fixed path. Acquisition
// is non-blocking: a second holder fails with Conflict instead of
// queueing. The kernel drops the lock when the descriptor closes, so
// release is tied to the handle, not to reaching any particular line.
type FileLock struct {
	f *os.File
}

func AcquireLock(path string) (*FileLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create lock parent")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(err, "open lock")
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, domain.ErrAlreadyRunning
	}
	return &FileLock{f: f}, nil
}

func (l *FileLock) Release() {
	if l == nil || l.f == nil {
		return
	}
	_ = unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	_ = l.f.Close()
	l.f = nil
}
