package workspace

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/musterdev/muster/internal/config"
	"github.com/musterdev/muster/internal/debug"
	"github.com/musterdev/muster/internal/git"
	"github.com/musterdev/muster/internal/lockfile"
)

// VCS is the slice of version-control behavior the manager needs. The
// default implementation shells out via the git package; tests substitute a
// fake.
type VCS interface {
	RepoRoot(dir string) (string, error)
	Identity(dir string) (string, error)
	CurrentBranch(dir string) (string, error)
	RemoteURL(dir string) (string, error)
	Clone(ctx context.Context, url, dest string) error
	CreateBranch(ctx context.Context, dir, name string) error
}

type gitVCS struct{}

func (gitVCS) RepoRoot(dir string) (string, error)      { return git.RepoRoot(dir) }
func (gitVCS) Identity(dir string) (string, error)      { return git.Identity(dir) }
func (gitVCS) CurrentBranch(dir string) (string, error) { return git.CurrentBranch(dir) }
func (gitVCS) RemoteURL(dir string) (string, error)     { return git.RemoteURL(dir) }
func (gitVCS) Clone(ctx context.Context, url, dest string) error {
	return git.Clone(ctx, url, dest)
}
func (gitVCS) CreateBranch(ctx context.Context, dir, name string) error {
	return git.CreateBranch(ctx, dir, name)
}

// Workspace is a provisioned working directory ready for an executor.
type Workspace struct {
	Path   string
	Branch string
	TaskID string
}

// Manager provisions, tracks, and locks workspaces.
type Manager struct {
	Registry *Registry
	Config   config.Workspace
	VCS      VCS
	// RepoDir is the repository the manager operates from (script cwd,
	// clone-source inference). Empty means the current directory.
	RepoDir string
}

// NewManager wires a manager from configuration.
func NewManager(cfg config.Workspace) *Manager {
	return &Manager{
		Registry: NewRegistry(cfg.Registry),
		Config:   cfg,
		VCS:      gitVCS{},
	}
}

// Create provisions a workspace for a task using the configured strategy and
// registers it. Script-strategy failures are logged and yield a nil
// workspace without an error, so the caller can fall back to running in
// place; clone-strategy failures are hard errors.
func (m *Manager) Create(ctx context.Context, taskID, planPath string) (*Workspace, error) {
	switch m.Config.Strategy {
	case config.StrategyScript:
		return m.createViaScript(ctx, taskID, planPath), nil
	case config.StrategyClone, "":
		return m.createViaClone(ctx, taskID, planPath)
	default:
		return nil, fmt.Errorf("unknown workspace strategy %q", m.Config.Strategy)
	}
}

func (m *Manager) createViaScript(ctx context.Context, taskID, planPath string) *Workspace {
	repoRoot := m.repoRoot()

	cmd := exec.CommandContext(ctx, m.Config.Script)
	cmd.Dir = repoRoot
	cmd.Env = append(os.Environ(),
		"MUSTER_TASK_ID="+taskID,
		"MUSTER_PLAN_FILE="+planPath,
	)
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		debug.Warnf("workspace script %s failed: %v\n", m.Config.Script, err)
		return nil
	}
	path := strings.TrimSpace(string(out))
	if path == "" || !filepath.IsAbs(path) {
		debug.Warnf("workspace script %s printed invalid path %q\n", m.Config.Script, path)
		return nil
	}
	if info, err := os.Stat(path); err != nil || !info.IsDir() {
		debug.Warnf("workspace script %s printed non-directory %q\n", m.Config.Script, path)
		return nil
	}

	ws := &Workspace{Path: NormalizePath(path), TaskID: taskID}
	if branch, err := m.VCS.CurrentBranch(ws.Path); err == nil {
		ws.Branch = branch
	}
	if err := m.register(ws, planPath); err != nil {
		debug.Warnf("workspace %s created but not registered: %v\n", ws.Path, err)
	}
	return ws
}

func (m *Manager) createViaClone(ctx context.Context, taskID, planPath string) (*Workspace, error) {
	url := m.Config.CloneURL
	if url == "" {
		remote, err := m.VCS.RemoteURL(m.repoRoot())
		if err != nil || remote == "" {
			return nil, fmt.Errorf("no clone URL configured and no origin remote found")
		}
		url = remote
	}

	dest := filepath.Join(m.Config.BaseDir, cloneDirName(url, taskID))
	if _, err := os.Stat(dest); err == nil {
		return nil, fmt.Errorf("workspace directory %s already exists", dest)
	}
	if err := os.MkdirAll(m.Config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace base dir: %w", err)
	}

	if err := m.VCS.Clone(ctx, url, dest); err != nil {
		return nil, err
	}

	branch := git.BranchNameForTask(taskID)
	if err := m.VCS.CreateBranch(ctx, dest, branch); err != nil {
		_ = os.RemoveAll(dest)
		return nil, err
	}

	if err := m.runPostClone(ctx, dest); err != nil {
		_ = os.RemoveAll(dest)
		return nil, err
	}

	ws := &Workspace{Path: NormalizePath(dest), Branch: branch, TaskID: taskID}
	if err := m.register(ws, planPath); err != nil {
		return nil, err
	}
	return ws, nil
}

// runPostClone executes the configured post-clone commands with the clone
// root as working directory. A failure is fatal unless the command is marked
// allow_failure, in which case it degrades to a warning.
func (m *Manager) runPostClone(ctx context.Context, cloneRoot string) error {
	for _, pc := range m.Config.PostClone {
		debug.Logf("workspace: post-clone: %s\n", pc.Command)
		cmd := exec.CommandContext(ctx, "sh", "-c", pc.Command)
		cmd.Dir = cloneRoot
		cmd.Stdout = os.Stderr
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			if pc.AllowFailure {
				debug.Warnf("post-clone command %q failed (allowed): %v\n", pc.Command, err)
				continue
			}
			return fmt.Errorf("post-clone command %q failed: %w", pc.Command, err)
		}
	}
	return nil
}

func (m *Manager) register(ws *Workspace, planPath string) error {
	patch := Patch{
		Name: Set(filepath.Base(ws.Path)),
	}
	if identity, err := m.VCS.Identity(ws.Path); err == nil && identity != "" {
		patch.RepoIdentity = Set(identity)
	}
	if planPath != "" {
		patch.Description = Set("created for " + filepath.Base(planPath))
	}
	return m.Registry.PatchMetadata(ws.Path, patch)
}

func (m *Manager) repoRoot() string {
	dir := m.RepoDir
	if dir == "" {
		dir = "."
	}
	if root, err := m.VCS.RepoRoot(dir); err == nil {
		return root
	}
	return dir
}

// ListEntry is a registry entry decorated with live state for display.
type ListEntry struct {
	Entry
	// Branch is computed live from the VCS; empty when unknown.
	Branch string `json:"branch,omitempty"`
	// Unknown marks entries whose directory could not be checked (stat
	// failed for a reason other than absence). They are kept, not deleted.
	Unknown bool `json:"unknown,omitempty"`
	// LockedBy is the live holder pid, or 0 when unlocked.
	LockedBy int `json:"locked_by,omitempty"`
}

// ListOptions filters a listing.
type ListOptions struct {
	// RepoIdentity keeps only workspaces of one repository.
	RepoIdentity string
	// PlanID keeps only workspaces associated with a plan.
	PlanID int
}

// ListEntries returns the registry contents with live branch and lock state.
// Entries whose directory is confirmed absent are pruned from the registry;
// a stat failure for any other reason (permissions, unreachable mount) flags
// the entry unknown and keeps it.
func (m *Manager) ListEntries(opts ListOptions) ([]ListEntry, error) {
	entries, err := m.Registry.Load()
	if err != nil {
		return nil, err
	}

	var out []ListEntry
	for path, entry := range entries {
		if opts.RepoIdentity != "" && entry.RepoIdentity != opts.RepoIdentity {
			continue
		}
		if opts.PlanID != 0 && entry.PlanID != opts.PlanID {
			continue
		}

		le := ListEntry{Entry: *entry}
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				debug.Logf("workspace: pruning %s (directory gone)\n", path)
				if rmErr := m.Registry.Remove(path); rmErr != nil {
					return nil, rmErr
				}
				continue
			}
			// Cannot tell whether the workspace still exists; keep it.
			le.Unknown = true
		} else {
			if branch, err := m.VCS.CurrentBranch(path); err == nil {
				le.Branch = branch
			}
		}

		if holder, err := lockfile.Holder(path, m.Config.LockDir); err == nil && holder != nil {
			le.LockedBy = holder.PID
		}
		out = append(out, le)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// AutoSelect picks an unlocked workspace registered for the given repository
// identity, preferring the least recently updated so hot workspaces stay
// free for their current task. Returns nil when none qualifies.
func (m *Manager) AutoSelect(repoIdentity string) (*ListEntry, error) {
	entries, err := m.ListEntries(ListOptions{RepoIdentity: repoIdentity})
	if err != nil {
		return nil, err
	}
	var best *ListEntry
	for i := range entries {
		e := &entries[i]
		if e.Unknown || e.LockedBy != 0 {
			continue
		}
		if best == nil || e.UpdatedAt.Before(best.UpdatedAt) {
			best = e
		}
	}
	return best, nil
}

// Lock acquires the exclusive lock for a workspace path.
func (m *Manager) Lock(path string, persistent bool) (*lockfile.Lock, error) {
	return lockfile.Acquire(NormalizePath(path), lockfile.Options{
		Dir:        m.Config.LockDir,
		Persistent: persistent,
	})
}

// Unlock releases a held lock.
func (m *Manager) Unlock(lock *lockfile.Lock) error {
	return lockfile.Release(lock)
}

// ForceUnlock removes a workspace's lock regardless of owner. Persistent
// locks are released this way since their owner process has usually exited.
func (m *Manager) ForceUnlock(path string) error {
	return lockfile.ForceRelease(NormalizePath(path), m.Config.LockDir)
}

func cloneDirName(url, taskID string) string {
	base := strings.TrimSuffix(filepath.Base(url), ".git")
	if base == "" || base == "." || base == "/" {
		base = "repo"
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, taskID)
	return base + "-" + safe
}
