package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Bogdusik/programming-helper-ai/internal/domain"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	tasks, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tasks) != len(Default()) {
		t.Errorf("Expected the built-in catalog, got %d tasks", len(tasks))
	}
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	seed := `[{"id":"x1","title":"X","language":"go","difficulty":"easy","description":"d","starter_code":"s"}]`
	if err := os.WriteFile(path, []byte(seed), 0644); err != nil {
		t.Fatal(err)
	}

	tasks, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []domain.Task{{
		ID:          "x1",
		Title:       "X",
		Language:    "go",
		Difficulty:  "easy",
		Description: "d",
		StarterCode: "s",
	}}
	if diff := cmp.Diff(want, tasks); diff != "" {
		t.Errorf("Seed file mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadSeed(t *testing.T) {
	dir := t.TempDir()

	garbled := filepath.Join(dir, "garbled.json")
	if err := os.WriteFile(garbled, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(garbled); err == nil {
		t.Error("Expected error for malformed seed file")
	}

	missingID := filepath.Join(dir, "noid.json")
	if err := os.WriteFile(missingID, []byte(`[{"title":"X"}]`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(missingID); err == nil {
		t.Error("Expected error for task without id")
	}
}

func TestDefaultCatalogIsWellFormed(t *testing.T) {
	seen := make(map[string]bool)
	for _, task := range Default() {
		if task.ID == "" || task.Title == "" || task.Language == "" || task.Description == "" {
			t.Errorf("Incomplete task: %+v", task)
		}
		if seen[task.ID] {
			t.Errorf("Duplicate task id %q", task.ID)
		}
		seen[task.ID] = true
	}
}
