// Package lockfile provides per-workspace exclusive locks backed by lock
// files. A lock records its owner pid; a lock whose owner is no longer
// running is stale and silently reclaimed by the next acquirer. Exclusivity
// is enforced by O_EXCL file creation plus the pid liveness check, not by an
// OS advisory lock, so locks survive and are recoverable across crashes.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/musterdev/muster/internal/debug"
)

// ErrLockBusy is returned when the workspace is locked by a live process.
var ErrLockBusy = errors.New("workspace is locked")

// Info is the JSON payload stored in a lock file.
type Info struct {
	PID        int       `json:"pid"`
	Host       string    `json:"host,omitempty"`
	Workspace  string    `json:"workspace"`
	Persistent bool      `json:"persistent,omitempty"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Lock is a held workspace lock.
type Lock struct {
	Info
	// FilePath is the lock file on disk.
	FilePath string
}

// Options controls acquisition.
type Options struct {
	// Dir is the lock directory. Required; callers inject it so tests and
	// the registry location stay independent.
	Dir string
	// Persistent marks the lock as surviving normal end-of-run cleanup.
	Persistent bool
	// Wait, when positive, retries a busy lock with exponential backoff for
	// up to this duration before giving up.
	Wait time.Duration
}

// PathFor returns the deterministic lock file path for a workspace path.
func PathFor(dir, workspace string) string {
	h := fnv.New64a()
	h.Write([]byte(filepath.Clean(workspace)))
	return filepath.Join(dir, fmt.Sprintf("ws-%016x.lock", h.Sum64()))
}

// Acquire takes the lock for a workspace path. A lock file owned by a dead
// process is reclaimed silently. A lock owned by a live process yields
// ErrLockBusy naming the holder pid.
func Acquire(workspace string, opts Options) (*Lock, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("lockfile: lock directory not configured")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("lockfile: create lock dir: %w", err)
	}

	attempt := func() (*Lock, error) { return tryAcquire(workspace, opts) }
	if opts.Wait <= 0 {
		return attempt()
	}

	var lock *Lock
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = opts.Wait
	err := backoff.Retry(func() error {
		l, err := attempt()
		if errors.Is(err, ErrLockBusy) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		lock = l
		return nil
	}, bo)
	if err != nil {
		return nil, err
	}
	return lock, nil
}

func tryAcquire(workspace string, opts Options) (*Lock, error) {
	lockPath := PathFor(opts.Dir, workspace)

	// Two passes: first attempt may find a stale lock to reclaim.
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return writeLock(f, lockPath, workspace, opts)
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("lockfile: create %s: %w", lockPath, err)
		}

		holder, readErr := readInfo(lockPath)
		// Persistent locks outlive their owner process and are never stale.
		if readErr == nil && (holder.Persistent || isProcessRunning(holder.PID)) {
			return nil, fmt.Errorf("workspace %s held by pid %d: %w", workspace, holder.PID, ErrLockBusy)
		}
		// Unreadable lock files are treated as stale along with dead owners.
		if readErr != nil {
			debug.Logf("lockfile: unreadable lock %s, reclaiming: %v\n", lockPath, readErr)
		} else {
			debug.Logf("lockfile: reclaiming stale lock %s (pid %d gone)\n", lockPath, holder.PID)
		}
		if err := os.Remove(lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("lockfile: reclaim %s: %w", lockPath, err)
		}
	}
	return nil, fmt.Errorf("workspace %s: %w", workspace, ErrLockBusy)
}

func writeLock(f *os.File, lockPath, workspace string, opts Options) (*Lock, error) {
	host, _ := os.Hostname()
	info := Info{
		PID:        os.Getpid(),
		Host:       host,
		Workspace:  filepath.Clean(workspace),
		Persistent: opts.Persistent,
		AcquiredAt: time.Now().UTC(),
	}
	enc := json.NewEncoder(f)
	if err := enc.Encode(&info); err != nil {
		_ = f.Close()
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("lockfile: write %s: %w", lockPath, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(lockPath)
		return nil, err
	}
	return &Lock{Info: info, FilePath: lockPath}, nil
}

// Release removes the lock file if this lock still owns it. Releasing a lock
// that was already reclaimed is not an error.
func Release(lock *Lock) error {
	if lock == nil {
		return nil
	}
	holder, err := readInfo(lock.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lockfile: read %s: %w", lock.FilePath, err)
	}
	if holder.PID != lock.PID {
		// Someone else reclaimed and re-acquired; leave their lock alone.
		return nil
	}
	if err := os.Remove(lock.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ForceRelease removes the lock for a workspace regardless of owner. This is
// the explicit unlock path for persistent locks, whose owner process is
// usually long gone.
func ForceRelease(workspace string, dir string) error {
	if err := os.Remove(PathFor(dir, workspace)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Holder returns the current lock info for a workspace, or nil when unlocked.
// A stale lock (dead owner) is reported as unlocked.
func Holder(workspace string, dir string) (*Info, error) {
	info, err := readInfo(PathFor(dir, workspace))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.Persistent && !isProcessRunning(info.PID) {
		return nil, nil
	}
	return info, nil
}

func readInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	if info.PID <= 0 {
		return nil, fmt.Errorf("lock file has no pid")
	}
	return &info, nil
}
