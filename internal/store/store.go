// Package store loads, validates, and persists plan files from a directory.
//
// Each plan lives in its own <id>-<slug>.plan.md file. The store keeps an
// id-indexed in-memory cache, invalidated by an fsnotify watcher on the plan
// directory so external edits (including an executor's own commits) are
// picked up on the next read.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/musterdev/muster/internal/debug"
	"github.com/musterdev/muster/internal/types"
)

// ErrNotFound is returned when a plan id or path does not resolve.
var ErrNotFound = errors.New("plan not found")

// PlanExt is the filename suffix for plan files.
const PlanExt = ".plan.md"

// SkippedFile records one file the directory scan could not load.
type SkippedFile struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// ScanSummary reports what a LoadAll pass skipped. A non-empty Skipped list
// does not make the scan an error; callers decide whether to surface it.
type ScanSummary struct {
	Scanned int           `json:"scanned"`
	Skipped []SkippedFile `json:"skipped,omitempty"`
}

// Store is a directory-backed plan store with an in-memory cache.
type Store struct {
	dir string

	mu      sync.Mutex
	cache   map[int]*types.Plan
	summary *ScanSummary
	dirty   bool

	watcher *fsnotify.Watcher
}

// New creates a store over the given plan directory, creating it if needed.
// The directory watcher is best-effort: if it cannot be established the store
// degrades to reloading on every read.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create plan directory: %w", err)
	}
	s := &Store{dir: dir, dirty: true}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		debug.Logf("store: watcher unavailable, caching disabled: %v\n", err)
		return s, nil
	}
	if err := w.Add(dir); err != nil {
		debug.Logf("store: cannot watch %s: %v\n", dir, err)
		_ = w.Close()
		return s, nil
	}
	s.watcher = w
	go s.watch()
	return s, nil
}

// Dir returns the plan directory path.
func (s *Store) Dir() string { return s.dir }

// Close stops the directory watcher.
func (s *Store) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) watch() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if strings.HasSuffix(ev.Name, PlanExt) {
				s.Invalidate()
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			debug.Logf("store: watch error: %v\n", err)
			s.Invalidate()
		}
	}
}

// Invalidate marks the cache dirty; the next LoadAll rescans the directory.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// LoadAll scans the plan directory and returns an id-indexed map of plans
// plus a summary of files that were skipped. Per-file validation failures and
// duplicate ids skip the file; they never abort the scan.
func (s *Store) LoadAll() (map[int]*types.Plan, *ScanSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty && s.cache != nil && s.watcher != nil {
		return clonePlanMap(s.cache), s.summary, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, nil, fmt.Errorf("scan plan directory: %w", err)
	}

	plans := make(map[int]*types.Plan)
	summary := &ScanSummary{}
	// Deterministic scan order so duplicate-id resolution is stable.
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), PlanExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(s.dir, name)
		summary.Scanned++
		plan, err := loadFile(path)
		if err != nil {
			summary.Skipped = append(summary.Skipped, SkippedFile{File: name, Reason: err.Error()})
			continue
		}
		if prev, ok := plans[plan.ID]; ok {
			summary.Skipped = append(summary.Skipped, SkippedFile{
				File:   name,
				Reason: fmt.Sprintf("duplicate plan id %d (already defined in %s)", plan.ID, filepath.Base(prev.Path)),
			})
			continue
		}
		plans[plan.ID] = plan
	}

	s.cache = plans
	s.summary = summary
	s.dirty = false
	return clonePlanMap(plans), summary, nil
}

// Load fetches one plan by id. Returns ErrNotFound (wrapped with the id) if
// no plan file defines it.
func (s *Store) Load(id int) (*types.Plan, error) {
	plans, _, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	plan, ok := plans[id]
	if !ok {
		return nil, fmt.Errorf("plan %d: %w", id, ErrNotFound)
	}
	return plan, nil
}

// LoadPath loads a plan directly from a file path, bypassing the cache.
func (s *Store) LoadPath(path string) (*types.Plan, error) {
	plan, err := loadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("plan file %s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	return plan, nil
}

// Save persists the plan atomically: encode to a temp file in the same
// directory, then rename over the target. UpdatedAt is stamped; CreatedAt is
// set on first save.
func (s *Store) Save(plan *types.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now

	path := plan.Path
	if path == "" {
		path = filepath.Join(s.dir, fmt.Sprintf("%d-%s%s", plan.ID, slugify(plan.Title), PlanExt))
		plan.Path = path
	}

	data, err := EncodePlan(plan)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".plan-*.tmp")
	if err != nil {
		return fmt.Errorf("save plan %d: %w", plan.ID, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("save plan %d: %w", plan.ID, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("save plan %d: %w", plan.ID, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("save plan %d: %w", plan.ID, err)
	}

	s.mu.Lock()
	if s.cache != nil {
		s.cache[plan.ID] = clonePlan(plan)
	}
	s.mu.Unlock()
	return nil
}

// NextID returns one more than the highest existing plan id.
func (s *Store) NextID() (int, error) {
	plans, _, err := s.LoadAll()
	if err != nil {
		return 0, err
	}
	max := 0
	for id := range plans {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

func loadFile(path string) (*types.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	plan, err := DecodePlan(data)
	if err != nil {
		return nil, err
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	plan.Path = path
	return plan, nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 60 {
		slug = strings.Trim(slug[:60], "-")
	}
	if slug == "" {
		slug = "plan"
	}
	return slug
}

func clonePlan(p *types.Plan) *types.Plan {
	cp := *p
	cp.Dependencies = append([]int(nil), p.Dependencies...)
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Tasks = make([]types.Task, len(p.Tasks))
	for i, task := range p.Tasks {
		cp.Tasks[i] = task
		cp.Tasks[i].Files = append([]string(nil), task.Files...)
		cp.Tasks[i].Steps = append([]types.Step(nil), task.Steps...)
	}
	if p.Parent != nil {
		v := *p.Parent
		cp.Parent = &v
	}
	if p.DiscoveredFrom != nil {
		v := *p.DiscoveredFrom
		cp.DiscoveredFrom = &v
	}
	return &cp
}

func clonePlanMap(m map[int]*types.Plan) map[int]*types.Plan {
	out := make(map[int]*types.Plan, len(m))
	for id, p := range m {
		out[id] = clonePlan(p)
	}
	return out
}
