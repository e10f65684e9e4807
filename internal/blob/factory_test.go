package blob

import (
	"context"
	"testing"

	fsblob "gclabcore/internal/infra/blob/fs"
	memblob "gclabcore/internal/infra/blob/memory"
)

func TestOpenSelectsDriverFromEnv(t *testing.T) {
	ctx := context.Background()

	t.Setenv("GCLAB_BLOB_DRIVER", "memory")
	store, err := Open(ctx)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	if _, ok := store.(*memblob.Store); !ok {
		t.Fatalf("expected memory store, got %T", store)
	}

	t.Setenv("GCLAB_BLOB_DRIVER", "fs")
	t.Setenv("GCLAB_BLOB_FS_ROOT", t.TempDir())
	store, err = Open(ctx)
	if err != nil {
		t.Fatalf("open fs: %v", err)
	}
	if _, ok := store.(*fsblob.Store); !ok {
		t.Fatalf("expected fs store, got %T", store)
	}

	t.Setenv("GCLAB_BLOB_DRIVER", "carrier-pigeon")
	if _, err := Open(ctx); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestConstructors(t *testing.T) {
	if NewMemory() == nil {
		t.Fatalf("expected memory store")
	}
	store, err := NewFilesystem(t.TempDir())
	if err != nil || store == nil {
		t.Fatalf("filesystem store: %v", err)
	}
}
