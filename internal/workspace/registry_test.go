package workspace

import (
	"errors"
	"path/filepath"
	"testing"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(filepath.Join(t.TempDir(), "workspaces.json"))
}

func TestPatchMetadataCreatesEntry(t *testing.T) {
	r := newRegistry(t)

	// scenario: no entry for /ws/a; a patch creates a minimal entry
	if err := r.PatchMetadata("/ws/a", Patch{Name: Set("foo")}); err != nil {
		t.Fatalf("PatchMetadata: %v", err)
	}

	entry, err := r.Get("/ws/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if entry.Name != "foo" {
		t.Errorf("name = %q, want foo", entry.Name)
	}
	if entry.UpdatedAt.IsZero() || entry.CreatedAt.IsZero() {
		t.Error("timestamps should be stamped")
	}
	if entry.Description != "" || entry.RepoIdentity != "" || entry.PlanID != 0 {
		t.Errorf("other fields should be absent: %+v", entry)
	}
}

func TestPatchTriState(t *testing.T) {
	r := newRegistry(t)

	if err := r.PatchMetadata("/ws/a", Patch{
		Name:        Set("alpha"),
		Description: Set("first"),
		PlanID:      Set(7),
	}); err != nil {
		t.Fatalf("PatchMetadata: %v", err)
	}

	t.Run("omitted fields are untouched", func(t *testing.T) {
		if err := r.PatchMetadata("/ws/a", Patch{Description: Set("second")}); err != nil {
			t.Fatalf("PatchMetadata: %v", err)
		}
		entry, _ := r.Get("/ws/a")
		if entry.Name != "alpha" || entry.PlanID != 7 {
			t.Errorf("unset fields must not change: %+v", entry)
		}
		if entry.Description != "second" {
			t.Errorf("set field must change: %q", entry.Description)
		}
	})

	t.Run("clear deletes the field", func(t *testing.T) {
		if err := r.PatchMetadata("/ws/a", Patch{Name: Clear[string](), PlanID: Clear[int]()}); err != nil {
			t.Fatalf("PatchMetadata: %v", err)
		}
		entry, _ := r.Get("/ws/a")
		if entry.Name != "" || entry.PlanID != 0 {
			t.Errorf("cleared fields should be zero: %+v", entry)
		}
		if entry.Description != "second" {
			t.Errorf("uncleared field lost: %q", entry.Description)
		}
	})
}

func TestPatchIssues(t *testing.T) {
	r := newRegistry(t)

	if err := r.PatchMetadata("/ws/a", Patch{Issues: Set([]string{"GH-12", "GH-34"})}); err != nil {
		t.Fatalf("PatchMetadata: %v", err)
	}
	entry, _ := r.Get("/ws/a")
	if len(entry.Issues) != 2 || entry.Issues[0] != "GH-12" || entry.Issues[1] != "GH-34" {
		t.Errorf("issues = %v, want [GH-12 GH-34]", entry.Issues)
	}

	// an omitted field leaves the list alone
	if err := r.PatchMetadata("/ws/a", Patch{Name: Set("x")}); err != nil {
		t.Fatal(err)
	}
	entry, _ = r.Get("/ws/a")
	if len(entry.Issues) != 2 {
		t.Errorf("unset issues field must not change the list: %v", entry.Issues)
	}

	if err := r.PatchMetadata("/ws/a", Patch{Issues: Clear[[]string]()}); err != nil {
		t.Fatal(err)
	}
	entry, _ = r.Get("/ws/a")
	if len(entry.Issues) != 0 {
		t.Errorf("cleared issues should be empty, got %v", entry.Issues)
	}
}

func TestPatchStampsUpdatedAt(t *testing.T) {
	r := newRegistry(t)
	if err := r.PatchMetadata("/ws/a", Patch{Name: Set("x")}); err != nil {
		t.Fatal(err)
	}
	first, _ := r.Get("/ws/a")

	if err := r.PatchMetadata("/ws/a", Patch{}); err != nil {
		t.Fatal(err)
	}
	second, _ := r.Get("/ws/a")
	if second.UpdatedAt.Before(first.UpdatedAt) {
		t.Error("UpdatedAt must be stamped on every patch")
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("CreatedAt must not change on patch")
	}
}

func TestPathNormalization(t *testing.T) {
	r := newRegistry(t)
	if err := r.PatchMetadata("/ws/a/", Patch{Name: Set("x")}); err != nil {
		t.Fatal(err)
	}
	entry, err := r.Get("/ws/a")
	if err != nil {
		t.Fatalf("trailing slash should normalize to same key: %v", err)
	}
	if entry.Path != "/ws/a" {
		t.Errorf("entry path should be normalized, got %q", entry.Path)
	}
}

func TestGetUnknownPath(t *testing.T) {
	r := newRegistry(t)
	_, err := r.Get("/nope")
	if !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	r := newRegistry(t)
	if err := r.PatchMetadata("/ws/a", Patch{Name: Set("x")}); err != nil {
		t.Fatal(err)
	}
	if err := r.Remove("/ws/a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := r.Get("/ws/a"); !errors.Is(err, ErrEntryNotFound) {
		t.Error("entry should be gone")
	}
	// removing again is a no-op
	if err := r.Remove("/ws/a"); err != nil {
		t.Errorf("double remove: %v", err)
	}
}

func TestRegistryPersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg.json")
	if err := NewRegistry(path).PatchMetadata("/ws/a", Patch{Name: Set("kept")}); err != nil {
		t.Fatal(err)
	}
	entry, err := NewRegistry(path).Get("/ws/a")
	if err != nil || entry.Name != "kept" {
		t.Fatalf("registry should persist: %+v err %v", entry, err)
	}
}
