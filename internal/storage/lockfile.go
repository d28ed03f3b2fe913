package storage

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/julianstephens/healthchain/internal/constants"
	"github.com/julianstephens/healthchain/internal/logger"
)

// ErrLocked is returned when another live process holds the store lock.
var ErrLocked = errors.New("store is locked by another process")

var findProcessFunc = ps.FindProcess

// Lockfile keeps a single writer process per file-backed store. The file
// holds "<pid>|<executable>"; a lock whose process is gone is stale and
// gets taken over.
type Lockfile struct {
	path string
	held bool
}

func NewLockfile(storePath string) *Lockfile {
	return &Lockfile{path: storePath + constants.LockfileSuffix}
}

func (l *Lockfile) Path() string {
	return l.path
}

// Acquire takes the lock. It is a no-op when this process already holds it.
func (l *Lockfile) Acquire() error {
	if l.held {
		return nil
	}

	pid, err := readLockPID(l.path)
	switch {
	case err == nil && pid == os.Getpid():
		l.held = true
		return nil
	case err == nil:
		proc, findErr := findProcessFunc(pid)
		if findErr == nil && proc != nil {
			return fmt.Errorf("%w: pid %d (%s) holds %s", ErrLocked, pid, proc.Executable(), l.path)
		}
		logger.Warn("Removing stale store lock", "path", l.path, "pid", pid)
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock: %w", err)
		}
	case os.IsNotExist(err):
	default:
		logger.Warn("Replacing malformed store lock", "path", l.path, "error", err)
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove malformed lock: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: %s was created concurrently", ErrLocked, l.path)
		}
		return fmt.Errorf("failed to create lock: %w", err)
	}
	defer f.Close()

	exe := constants.AppName
	if p, err := os.Executable(); err == nil {
		exe = p
	}
	if _, err := fmt.Fprintf(f, "%d|%s", os.Getpid(), exe); err != nil {
		return fmt.Errorf("failed to write lock: %w", err)
	}

	l.held = true
	return nil
}

// Release removes the lock if this process holds it.
func (l *Lockfile) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func readLockPID(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	parts := strings.SplitN(strings.TrimSpace(string(content)), "|", 2)
	pid, err := strconv.Atoi(parts[0])
	if err != nil || pid <= 0 {
		return 0, errors.New("invalid process ID in lockfile")
	}
	return pid, nil
}
