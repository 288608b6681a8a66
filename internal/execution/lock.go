package execution

import (
	"fmt"
	"os"
	"syscall"
)

// LockFilename is the advisory lock taken in the sandbox root for the
// duration of one execution run.
const LockFilename = ".ditapack.lock"

// acquireRunLock takes an exclusive flock on the sandbox's lock file so two
// executions can never mutate the same sandbox concurrently. It returns an
// unlock function that must be called to release the lock.
func acquireRunLock(path string) (unlock func() error, err error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening run lock: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("sandbox is locked by another execution: %w", err)
	}

	return func() error {
		defer f.Close()
		return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	}, nil
}

// WithRunLock runs fn while holding the sandbox's exclusive run lock.
func WithRunLock(sandbox *Sandbox, fn func() error) error {
	lockPath, err := sandbox.Resolve(LockFilename)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(sandbox.Root(), 0o755); err != nil {
		return fmt.Errorf("preparing sandbox root: %w", err)
	}
	unlock, err := acquireRunLock(lockPath)
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()
	return fn()
}
