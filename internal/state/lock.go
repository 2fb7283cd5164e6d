package state

import (
	"fmt"
	"os"
)

// FileLock is an advisory lock on a dedicated lock file.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock returns an unlocked FileLock for path.
func NewFileLock(path string) *FileLock {
	return &FileLock{path: path}
}

// LockShared blocks until a shared (read) lock is held.
func (l *FileLock) LockShared() error {
	return l.acquire(false)
}

// LockExclusive blocks until an exclusive (write) lock is held.
func (l *FileLock) LockExclusive() error {
	return l.acquire(true)
}

func (l *FileLock) acquire(exclusive bool) error {
	if l.file != nil {
		return fmt.Errorf("lock %s already held", l.path)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lock file: %w", err)
	}
	if err := lockFile(f, exclusive); err != nil {
		f.Close()
		return fmt.Errorf("failed to lock %s: %w", l.path, err)
	}
	l.file = f
	return nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}
	err := unlockFile(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}
