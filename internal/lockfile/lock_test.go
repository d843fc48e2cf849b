package lockfile

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()
	ws := filepath.Join(dir, "workspace")

	lock, err := Acquire(ws, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if lock.PID != os.Getpid() {
		t.Errorf("lock should record our pid, got %d", lock.PID)
	}
	if _, err := os.Stat(lock.FilePath); err != nil {
		t.Fatalf("lock file should exist: %v", err)
	}

	// second acquire from the same (live) process is busy
	_, err = Acquire(ws, Options{Dir: dir})
	if !errors.Is(err, ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy, got %v", err)
	}
	if !strings.Contains(err.Error(), "pid") {
		t.Errorf("busy error should name the holder, got %v", err)
	}

	if err := Release(lock); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(lock.FilePath); !errors.Is(err, os.ErrNotExist) {
		t.Error("lock file should be gone after release")
	}

	// release twice is fine
	if err := Release(lock); err != nil {
		t.Errorf("double release should be a no-op: %v", err)
	}
}

func TestStaleLockReclaimed(t *testing.T) {
	dir := t.TempDir()
	ws := filepath.Join(dir, "workspace")

	// plant a lock owned by a pid that cannot exist
	info := Info{PID: 1 << 30, Workspace: ws, AcquiredAt: time.Now()}
	data, _ := json.Marshal(info)
	if err := os.WriteFile(PathFor(dir, ws), data, 0o644); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}

	lock, err := Acquire(ws, Options{Dir: dir})
	if err != nil {
		t.Fatalf("stale lock should be silently reclaimed, got %v", err)
	}
	if lock.PID != os.Getpid() {
		t.Errorf("reclaimed lock should belong to us, got pid %d", lock.PID)
	}
}

func TestPersistentLockSurvivesDeadOwner(t *testing.T) {
	dir := t.TempDir()
	ws := filepath.Join(dir, "workspace")

	// a persistent lock whose owner has exited is still held
	info := Info{PID: 1 << 30, Workspace: ws, Persistent: true, AcquiredAt: time.Now()}
	data, _ := json.Marshal(info)
	if err := os.WriteFile(PathFor(dir, ws), data, 0o644); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	if _, err := Acquire(ws, Options{Dir: dir}); !errors.Is(err, ErrLockBusy) {
		t.Fatalf("persistent lock must not be reclaimed, got %v", err)
	}
	holder, err := Holder(ws, dir)
	if err != nil || holder == nil || !holder.Persistent {
		t.Fatalf("holder should report the persistent lock, got %+v err=%v", holder, err)
	}

	if err := ForceRelease(ws, dir); err != nil {
		t.Fatalf("ForceRelease: %v", err)
	}
	if _, err := Acquire(ws, Options{Dir: dir}); err != nil {
		t.Fatalf("workspace should be free after force release: %v", err)
	}
}

func TestCorruptLockReclaimed(t *testing.T) {
	dir := t.TempDir()
	ws := filepath.Join(dir, "workspace")
	if err := os.WriteFile(PathFor(dir, ws), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt lock: %v", err)
	}

	if _, err := Acquire(ws, Options{Dir: dir}); err != nil {
		t.Fatalf("corrupt lock should be reclaimed, got %v", err)
	}
}

func TestReleaseDoesNotStealReacquiredLock(t *testing.T) {
	dir := t.TempDir()
	ws := filepath.Join(dir, "workspace")

	lock, err := Acquire(ws, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	// simulate another process reclaiming and re-acquiring
	other := Info{PID: os.Getpid() + 1, Workspace: ws, AcquiredAt: time.Now()}
	data, _ := json.Marshal(other)
	if err := os.WriteFile(lock.FilePath, data, 0o644); err != nil {
		t.Fatalf("overwrite lock: %v", err)
	}

	if err := Release(lock); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(lock.FilePath); err != nil {
		t.Error("release must not remove a lock owned by someone else")
	}
}

func TestHolder(t *testing.T) {
	dir := t.TempDir()
	ws := filepath.Join(dir, "workspace")

	holder, err := Holder(ws, dir)
	if err != nil || holder != nil {
		t.Fatalf("unlocked workspace: holder=%v err=%v", holder, err)
	}

	lock, err := Acquire(ws, Options{Dir: dir, Persistent: true})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	holder, err = Holder(ws, dir)
	if err != nil || holder == nil {
		t.Fatalf("expected holder, got %v err=%v", holder, err)
	}
	if holder.PID != os.Getpid() || !holder.Persistent {
		t.Errorf("holder info wrong: %+v", holder)
	}

	_ = Release(lock)
}

func TestAcquireWaitTimesOut(t *testing.T) {
	dir := t.TempDir()
	ws := filepath.Join(dir, "workspace")

	lock, err := Acquire(ws, Options{Dir: dir})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer func() { _ = Release(lock) }()

	start := time.Now()
	_, err = Acquire(ws, Options{Dir: dir, Wait: 200 * time.Millisecond})
	if !errors.Is(err, ErrLockBusy) {
		t.Fatalf("expected ErrLockBusy after wait, got %v", err)
	}
	if time.Since(start) < 150*time.Millisecond {
		t.Error("wait should have retried before giving up")
	}
}

func TestPathForDeterministic(t *testing.T) {
	dir := "/locks"
	a := PathFor(dir, "/ws/a")
	b := PathFor(dir, "/ws/a/")
	if a != b {
		t.Errorf("path normalization should make these equal: %s vs %s", a, b)
	}
	if a == PathFor(dir, "/ws/b") {
		t.Error("different workspaces must map to different lock files")
	}
}
