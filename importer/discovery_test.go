package importer

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestFindTables(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"Fam.DB", "Fam.MB", "Mem.DB", "lower.db", "lower.mb", "notes.txt", "Fam.PX"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "Sub.DB"), 0755); err != nil {
		t.Fatal(err)
	}

	tables, err := FindTables(dir)
	if err != nil {
		t.Fatalf("FindTables failed: %v", err)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Base < tables[j].Base })

	expected := []TableFile{
		{Base: "Fam", Path: filepath.Join(dir, "Fam.DB"), Companion: filepath.Join(dir, "Fam.MB")},
		{Base: "Mem", Path: filepath.Join(dir, "Mem.DB")},
		{Base: "lower", Path: filepath.Join(dir, "lower.db"), Companion: filepath.Join(dir, "lower.mb")},
	}
	if len(tables) != len(expected) {
		t.Fatalf("got %d tables (%v), want %d", len(tables), tables, len(expected))
	}
	for i, want := range expected {
		if tables[i] != want {
			t.Errorf("table %d = %+v, want %+v", i, tables[i], want)
		}
	}
}

func TestFindTables_MissingDir(t *testing.T) {
	if _, err := FindTables(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
