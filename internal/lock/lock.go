package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// LockHeldError is returned when another process holds the data directory lock.
type LockHeldError struct {
	PID  int
	Path string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("data dir lock held by PID %d (%s)", e.PID, e.Path)
}

// ErrNotRunning is returned by ReadInfo when no daemon holds the lock.
var ErrNotRunning = errors.New("daemon not running")

// Lock represents an acquired data directory lock file.
type Lock struct {
	file    *os.File
	path    string
	started time.Time
}

// Info is what a running daemon records in its lock file.
type Info struct {
	PID     int
	Addr    string
	Started time.Time
}

// Acquire attempts to acquire an exclusive lock on the data directory.
// Returns LockHeldError if another process already holds it.
func Acquire(dataDir string) (*Lock, error) {
	lockPath := filepath.Join(dataDir, "LOCK")

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err != nil {
		// Read existing PID from file for diagnostics.
		data, _ := os.ReadFile(lockPath)
		info := parse(string(data))
		_ = f.Close()
		return nil, &LockHeldError{PID: info.PID, Path: lockPath}
	}

	l := &Lock{file: f, path: lockPath, started: time.Now().UTC()}
	if err := l.write(""); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

// SetAddress records the address the daemon listens on so clients can find it.
func (l *Lock) SetAddress(addr string) error {
	if l == nil || l.file == nil {
		return errors.New("lock not held")
	}
	return l.write(addr)
}

func (l *Lock) write(addr string) error {
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	if _, err := l.file.Seek(0, 0); err != nil {
		return err
	}
	content := fmt.Sprintf("pid=%d\ntime=%s\n", os.Getpid(), l.started.Format(time.RFC3339))
	if addr != "" {
		content += "addr=" + addr + "\n"
	}
	_, err := l.file.WriteString(content)
	return err
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove lock file before closing to avoid stale files.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// ReadInfo returns what the daemon holding dataDir's lock recorded. It
// returns ErrNotRunning when the lock file is absent or not held.
func ReadInfo(dataDir string) (*Info, error) {
	lockPath := filepath.Join(dataDir, "LOCK")
	f, err := os.Open(lockPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotRunning
	}
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	defer func() { _ = f.Close() }()

	// A lock we can take ourselves is stale.
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_SH|syscall.LOCK_NB); err == nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		return nil, ErrNotRunning
	}

	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, fmt.Errorf("read lock file: %w", err)
	}
	info := parse(string(data))
	return &info, nil
}

func parse(content string) Info {
	var info Info
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			info.PID, _ = strconv.Atoi(value)
		case "addr":
			info.Addr = value
		case "time":
			info.Started, _ = time.Parse(time.RFC3339, value)
		}
	}
	return info
}
