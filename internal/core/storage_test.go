package core

import (
	"path/filepath"
	"testing"

	"gclabcore/internal/infra/persistence/memory"
	"gclabcore/internal/infra/persistence/sqlite"
)

func TestOpenPersistentStoreMemory(t *testing.T) {
	t.Setenv("GCLAB_STORAGE_DRIVER", "memory")
	store, err := OpenPersistentStore(NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, ok := store.(*memory.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
}

func TestOpenPersistentStoreSQLiteDefault(t *testing.T) {
	t.Setenv("GCLAB_STORAGE_DRIVER", "")
	t.Setenv("GCLAB_SQLITE_PATH", filepath.Join(t.TempDir(), "gclab.db"))
	store, err := OpenPersistentStore(nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sq, ok := store.(*sqlite.Store)
	if !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	defer func() { _ = sq.Close() }()
}

func TestOpenPersistentStoreUnknownDriver(t *testing.T) {
	t.Setenv("GCLAB_STORAGE_DRIVER", "etcd")
	if _, err := OpenPersistentStore(nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
