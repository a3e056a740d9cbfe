package storage

import (
	"os"
	"syscall"

	"github.com/ignite-kv/ignite/pkg/errors"
)

// dirLock is the directory's exclusive LOCK file, enforcing ignite's
// single-writer, single-process model.
//
// It combines two strategies rather than either alone: the file is opened
// with O_CREATE (not O_EXCL) so a LOCK file left behind by a process that
// crashed without closing cleanly never permanently wedges the directory,
// and acquisition is gated on a non-blocking flock(2), which the kernel
// releases automatically when a holding process dies. A process that
// exits cleanly removes the file; one that doesn't leaves it in place,
// but the next opener's flock still succeeds because nothing is holding
// it anymore.
type dirLock struct {
	path string
	file *os.File
}

// acquireLock acquires the exclusive lock at path, failing with
// ErrorCodeAlreadyLocked if another live process already holds it.
func acquireLock(path string) (*dirLock, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.NewLockError(err, errors.ErrorCodeIO, "failed to open lock file").WithPath(path)
	}

	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		file.Close()
		return nil, errors.NewLockError(err, errors.ErrorCodeAlreadyLocked, "directory is already locked by another process").
			WithPath(path)
	}

	return &dirLock{path: path, file: file}, nil
}

// release unlocks and removes the LOCK file. A clean shutdown always
// removes it; the flock alone is sufficient to protect a directory
// whose LOCK file is left behind by an unclean one.
func (l *dirLock) release() error {
	if err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN); err != nil {
		l.file.Close()
		return errors.NewLockError(err, errors.ErrorCodeIO, "failed to unlock lock file").WithPath(l.path)
	}
	if err := l.file.Close(); err != nil {
		return errors.NewLockError(err, errors.ErrorCodeIO, "failed to close lock file").WithPath(l.path)
	}
	if err := os.Remove(l.path); err != nil {
		return errors.NewLockError(err, errors.ErrorCodeIO, "failed to remove lock file").WithPath(l.path)
	}
	return nil
}
