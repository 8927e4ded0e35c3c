package computer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ccsync/ccsync/pkg/save"
)

func mkComputers(t *testing.T, ids ...string) string {
	t.Helper()
	dir := t.TempDir()
	base := filepath.Join(dir, save.ComputersSubpath)
	for _, id := range ids {
		if err := os.MkdirAll(filepath.Join(base, id), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestFindSortsNumericThenLexicographic(t *testing.T) {
	dir := mkComputers(t, "10", "2", "1", "alpha", "beta")

	computers, err := Find(dir)
	if err != nil {
		t.Fatal(err)
	}

	var ids []string
	for _, c := range computers {
		ids = append(ids, c.ID)
	}

	want := []string{"1", "2", "10", "alpha", "beta"}
	if len(ids) != len(want) {
		t.Fatalf("got %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("position %d: got %q, want %q (full: %v)", i, ids[i], want[i], ids)
		}
	}
}

func TestFindExcludesIgnoredNames(t *testing.T) {
	dir := mkComputers(t, "1", ".git", ".vscode", ".DS_Store")

	computers, err := Find(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(computers) != 1 || computers[0].ID != "1" {
		t.Errorf("expected only computer 1, got %+v", computers)
	}
}

func TestFindExcludesFiles(t *testing.T) {
	dir := mkComputers(t, "1")
	base := filepath.Join(dir, save.ComputersSubpath)
	if err := os.WriteFile(filepath.Join(base, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	computers, err := Find(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(computers) != 1 {
		t.Errorf("expected files to be excluded, got %+v", computers)
	}
}
