// Session file repository: cross-process lock and retention pruning
package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"packetlog/internal/global"
)

var ErrLocked = errors.New("repository is locked by another process")

// Exclusive hold on a repository folder
type Lock struct {
	path string
	file *os.File
}

// Takes the repository lock without waiting. Contention returns ErrLocked.
func Acquire(folder string) (lock *Lock, err error) {
	err = os.MkdirAll(folder, 0750)
	if err != nil {
		err = fmt.Errorf("failed to create repository folder: %w", err)
		return
	}

	path := filepath.Join(folder, global.LockFileName)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0640)
	if err != nil {
		err = fmt.Errorf("failed to open lock file: %w", err)
		return
	}

	err = unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if errors.Is(err, unix.EWOULDBLOCK) {
		file.Close()
		err = ErrLocked
		return
	} else if err != nil {
		file.Close()
		err = fmt.Errorf("failed to lock repository: %w", err)
		return
	}

	lock = &Lock{path: path, file: file}
	return
}

func (lock *Lock) Release() (err error) {
	if lock == nil || lock.file == nil {
		return
	}
	err = unix.Flock(int(lock.file.Fd()), unix.LOCK_UN)
	closeErr := lock.file.Close()
	lock.file = nil
	if err == nil {
		err = closeErr
	}
	if err != nil {
		err = fmt.Errorf("failed to release repository lock: %w", err)
	}
	return
}
