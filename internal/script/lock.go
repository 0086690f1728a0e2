package script

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

// ErrLocked is returned by Lock when another process holds the lock.
var ErrLocked = xerrors.New("lock held by another process")

// Lock is an exclusive flock(2) on a lock file.
type Lock struct {
	f *os.File
}

// Acquire takes the lock at path without blocking.
func Acquire(path string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, xerrors.Errorf("%s: %w", path, ErrLocked)
		}
		return nil, xerrors.Errorf("flock(%s): %v", path, err)
	}
	return &Lock{f: f}, nil
}

// Release unlocks and closes the lock file. The file itself stays, removing
// it would race with processes waiting for it.
func (l *Lock) Release() error {
	if err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN); err != nil {
		l.f.Close()
		return err
	}
	return l.f.Close()
}
