package repository

import (
	"context"
	"path/filepath"
	"testing"
)

func TestRegistry_GetReusesHandle(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "new_logs.db")

	a, err := reg.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	b, err := reg.Get(ctx, path)
	if err != nil {
		t.Fatalf("Get again: %v", err)
	}
	if a != b {
		t.Error("expected the same repository for the same path")
	}
	if a.Path() != path {
		t.Errorf("Path = %q, want %q", a.Path(), path)
	}
}

func TestRegistry_RangeInPathOrder(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()
	ctx := context.Background()
	dir := t.TempDir()

	for _, name := range []string{"b.db", "a.db", "c.db"} {
		if _, err := reg.Get(ctx, filepath.Join(dir, name)); err != nil {
			t.Fatalf("Get %s: %v", name, err)
		}
	}

	var got []string
	reg.Range(func(repo *SQLiteRepository) bool {
		got = append(got, filepath.Base(repo.Path()))
		return true
	})
	if len(got) != 3 || got[0] != "a.db" || got[2] != "c.db" {
		t.Errorf("Range order = %v", got)
	}
}

func TestRegistry_GetError(t *testing.T) {
	reg := NewRegistry()
	defer reg.Close()

	// A directory cannot be opened as a database file.
	if _, err := reg.Get(context.Background(), t.TempDir()); err == nil {
		t.Fatal("expected error opening a directory")
	}
	count := 0
	reg.Range(func(*SQLiteRepository) bool { count++; return true })
	if count != 0 {
		t.Errorf("failed open should not be registered, have %d", count)
	}
}
