package storage

import (
	"errors"
	"path/filepath"
	"testing"
)

func backends(t *testing.T) map[string]Database {
	t.Helper()
	level, err := NewLevelDB(filepath.Join(t.TempDir(), "level"))
	if err != nil {
		t.Fatalf("open leveldb: %v", err)
	}
	bolt, err := NewBoltDB(filepath.Join(t.TempDir(), "state.bolt"))
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	t.Cleanup(func() {
		level.Close()
		bolt.Close()
	})
	return map[string]Database{
		"mem":   NewMemDB(),
		"level": level,
		"bolt":  bolt,
	}
}

func TestDatabaseBackends(t *testing.T) {
	for name, db := range backends(t) {
		db := db
		t.Run(name, func(t *testing.T) {
			if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			if err := db.Put([]byte("a"), []byte("1")); err != nil {
				t.Fatalf("put: %v", err)
			}
			got, err := db.Get([]byte("a"))
			if err != nil || string(got) != "1" {
				t.Fatalf("get: %q %v", got, err)
			}
			if err := db.Write([]Op{{Key: []byte("a")}, {Key: []byte("b"), Value: []byte("2")}}); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := db.Get([]byte("a")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected a deleted, got %v", err)
			}
			got, err = db.Get([]byte("b"))
			if err != nil || string(got) != "2" {
				t.Fatalf("get b: %q %v", got, err)
			}
			if err := db.Delete([]byte("b")); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := db.Get([]byte("b")); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected b deleted, got %v", err)
			}
		})
	}
}

func TestCacheDBCommitAndDiscard(t *testing.T) {
	parent := NewMemDB()
	if err := parent.Put([]byte("keep"), []byte("v0")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cache := NewCacheDB(parent)
	_ = cache.Put([]byte("new"), []byte("v1"))
	_ = cache.Delete([]byte("keep"))

	if _, err := cache.Get([]byte("keep")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cache should hide deleted key, got %v", err)
	}
	if got, _ := parent.Get([]byte("keep")); string(got) != "v0" {
		t.Fatalf("parent mutated before commit: %q", got)
	}

	cache.Discard()
	if got, err := cache.Get([]byte("keep")); err != nil || string(got) != "v0" {
		t.Fatalf("discard should restore parent view: %q %v", got, err)
	}
	if _, err := cache.Get([]byte("new")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("discarded write visible: %v", err)
	}

	_ = cache.Put([]byte("new"), []byte("v2"))
	_ = cache.Delete([]byte("keep"))
	if err := cache.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got, err := parent.Get([]byte("new")); err != nil || string(got) != "v2" {
		t.Fatalf("commit not applied: %q %v", got, err)
	}
	if _, err := parent.Get([]byte("keep")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("commit did not delete: %v", err)
	}
	if len(cache.Pending()) != 0 {
		t.Fatalf("pending ops remain after commit")
	}
}
