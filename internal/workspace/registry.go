// Package workspace manages the isolated working directories agents run in:
// a JSON registry of known workspaces, provisioning strategies for new ones,
// and lock-guarded exclusive use.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// ErrEntryNotFound is returned when a workspace path is not registered.
var ErrEntryNotFound = errors.New("workspace not registered")

// Entry is one tracked workspace. Branch is deliberately absent: it is
// recomputed live on every listing, never cached.
type Entry struct {
	Path         string    `json:"path"`
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description,omitempty"`
	RepoIdentity string    `json:"repo_identity,omitempty"`
	PlanID       int       `json:"plan_id,omitempty"`
	PlanTitle    string    `json:"plan_title,omitempty"`
	Issues       []string  `json:"issues,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Field is a tri-state patch value: left unset a field is untouched, Clear
// deletes it, Set replaces it. This keeps "clear" and "leave unchanged"
// impossible to confuse, unlike an empty-string sentinel.
type Field[T any] struct {
	set   bool
	clear bool
	value T
}

// Set returns a field that replaces the current value.
func Set[T any](v T) Field[T] { return Field[T]{set: true, value: v} }

// Clear returns a field that deletes the current value.
func Clear[T any]() Field[T] { return Field[T]{clear: true} }

func (f Field[T]) apply(dst *T) bool {
	switch {
	case f.clear:
		var zero T
		*dst = zero
		return true
	case f.set:
		*dst = f.value
		return true
	}
	return false
}

// Patch is a partial update to a registry entry.
type Patch struct {
	Name         Field[string]
	Description  Field[string]
	RepoIdentity Field[string]
	PlanID       Field[int]
	PlanTitle    Field[string]
	Issues       Field[[]string]
}

// Registry is the on-disk workspace registry: one JSON object keyed by
// normalized absolute workspace path. The file location is injected, never
// implicit, and writes are atomic (temp + rename).
type Registry struct {
	path string
	mu   sync.Mutex
}

// NewRegistry returns a registry stored at the given file path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Path returns the registry file location.
func (r *Registry) Path() string { return r.path }

// NormalizePath canonicalizes a workspace path for use as a registry key.
func NormalizePath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

// Load reads all entries. A missing registry file is an empty registry.
func (r *Registry) Load() (map[string]*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

func (r *Registry) loadLocked() (map[string]*Entry, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]*Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", r.path, err)
	}
	entries := map[string]*Entry{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, fmt.Errorf("parse registry %s: %w", r.path, err)
		}
	}
	for path, entry := range entries {
		entry.Path = path
	}
	return entries, nil
}

func (r *Registry) saveLocked(entries map[string]*Entry) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create registry dir: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("write registry: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write registry: %w", err)
	}
	return nil
}

// Get returns the entry for a workspace path.
func (r *Registry) Get(path string) (*Entry, error) {
	entries, err := r.Load()
	if err != nil {
		return nil, err
	}
	entry, ok := entries[NormalizePath(path)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrEntryNotFound)
	}
	return entry, nil
}

// PatchMetadata merges a partial update into the entry for path, creating a
// minimal entry if none exists. UpdatedAt is always stamped.
func (r *Registry) PatchMetadata(path string, patch Patch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.loadLocked()
	if err != nil {
		return err
	}

	key := NormalizePath(path)
	now := time.Now().UTC()
	entry, ok := entries[key]
	if !ok {
		entry = &Entry{Path: key, CreatedAt: now}
		entries[key] = entry
	}

	patch.Name.apply(&entry.Name)
	patch.Description.apply(&entry.Description)
	patch.RepoIdentity.apply(&entry.RepoIdentity)
	patch.PlanID.apply(&entry.PlanID)
	patch.PlanTitle.apply(&entry.PlanTitle)
	patch.Issues.apply(&entry.Issues)
	entry.UpdatedAt = now

	return r.saveLocked(entries)
}

// Remove deletes the entry for path. Callers must only do this after
// confirming the directory itself is gone; see Manager.ListEntries.
func (r *Registry) Remove(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.loadLocked()
	if err != nil {
		return err
	}
	key := NormalizePath(path)
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return r.saveLocked(entries)
}
