package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lockFileName      = "write.lock"
	lockRetryInterval = 10 * time.Millisecond

	// DefaultLockTimeout bounds how long a writer waits for another one.
	DefaultLockTimeout = 10 * time.Second
	// DefaultLockStaleAfter is the age past which a lock is considered
	// abandoned even when its owner cannot be checked. No single write
	// holds the lock this long.
	DefaultLockStaleAfter = time.Minute
)

// ErrLocked is returned when the vault stays locked by another writer past
// the lock timeout.
var ErrLocked = errors.New("vault is locked by another writer")

// lockOwner is written into the lock file so that a lock left behind by a
// crashed process can be recognised and broken.
type lockOwner struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// fileLock is a cross-process lock backed by an exclusively created file.
// A CLI invocation and a long running watcher can share one vault safely.
type fileLock struct {
	path       string
	timeout    time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

func newFileLock(vaultPath, systemDir string, timeout, staleAfter time.Duration) *fileLock {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if staleAfter <= 0 {
		staleAfter = DefaultLockStaleAfter
	}
	return &fileLock{
		path:       filepath.Join(vaultPath, systemDir, lockFileName),
		timeout:    timeout,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Acquire blocks until the lock is held, ctx is done or the lock timeout
// passes. Locks abandoned by dead processes are broken on the way.
func (l *fileLock) Acquire(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	for {
		ok, err := l.tryCreate()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() { os.Remove(l.path) }, nil
		}

		if l.breakIfStale() {
			continue
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w (%s)", ErrLocked, l.describeHolder())
			}
			return nil, fmt.Errorf("failed to acquire lock: %w", ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

func (l *fileLock) tryCreate() (bool, error) {
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if os.IsExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	defer f.Close()

	host, _ := os.Hostname()
	owner := lockOwner{PID: os.Getpid(), Host: host, AcquiredAt: l.now().UTC()}
	if err := json.NewEncoder(f).Encode(owner); err != nil {
		os.Remove(l.path)
		return false, fmt.Errorf("failed to record lock owner: %w", err)
	}
	return true, nil
}

// breakIfStale removes the lock when its owner is gone. It reports whether
// the caller should retry immediately.
func (l *fileLock) breakIfStale() bool {
	data, info, err := l.read()
	if err != nil {
		// Released between our attempt and the read.
		return os.IsNotExist(err)
	}
	if !l.stale(data, info.ModTime()) {
		return false
	}

	// Move the lock aside before deleting it. If another writer broke the
	// same lock and took a fresh one meanwhile, what we moved is theirs:
	// put it back (Link fails if the path is taken again).
	tomb := fmt.Sprintf("%s.stale-%d", l.path, os.Getpid())
	if err := os.Rename(l.path, tomb); err != nil {
		return os.IsNotExist(err)
	}
	defer os.Remove(tomb)
	if moved, err := os.ReadFile(tomb); err == nil && !bytes.Equal(moved, data) {
		_ = os.Link(tomb, l.path)
		return false
	}
	return true
}

func (l *fileLock) stale(data []byte, mtime time.Time) bool {
	if l.now().Sub(mtime) > l.staleAfter {
		return true
	}
	var owner lockOwner
	if err := json.Unmarshal(data, &owner); err != nil || owner.PID <= 0 {
		// Unreadable or still being written; only age can tell.
		return false
	}
	host, _ := os.Hostname()
	if owner.Host != host {
		return false
	}
	return !processAlive(owner.PID)
}

func (l *fileLock) read() ([]byte, os.FileInfo, error) {
	info, err := os.Stat(l.path)
	if err != nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, nil, err
	}
	return data, info, nil
}

func (l *fileLock) describeHolder() string {
	data, _, err := l.read()
	if err != nil {
		return l.path
	}
	var owner lockOwner
	if json.Unmarshal(data, &owner) != nil || owner.PID <= 0 {
		return l.path
	}
	return fmt.Sprintf("pid %d on %s since %s", owner.PID, owner.Host, owner.AcquiredAt.Format(time.RFC3339))
}
