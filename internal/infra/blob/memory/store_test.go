package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"gclabcore/internal/blob/core"
)

func TestPutGetRoundTrip(t *testing.T) {
	store := New()
	ctx := context.Background()
	payload := []byte(`{"points":[]}`)

	info, err := store.Put(ctx, "exports/a/chart.json", bytes.NewReader(payload), core.PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"target_key": "m||a"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("size: got %d want %d", info.Size, len(payload))
	}

	got, rc, err := store.Get(ctx, "exports/a/chart.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Fatalf("payload mismatch")
	}
	if got.ContentType != "application/json" {
		t.Fatalf("content type: got %q", got.ContentType)
	}
	if got.Metadata["target_key"] != "m||a" {
		t.Fatalf("metadata lost: %v", got.Metadata)
	}
}

func TestPutRejectsExistingKey(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := store.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatalf("expected immutability error on duplicate key")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	existed, err := store.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, err = store.Delete(ctx, "k")
	if err != nil || existed {
		t.Fatalf("second delete: existed=%v err=%v", existed, err)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	store := New()
	ctx := context.Background()
	for _, key := range []string{"exports/a/1.json", "exports/a/2.csv", "exports/b/1.json"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := store.List(ctx, "exports/a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(infos))
	}
	if infos[0].Key > infos[1].Key {
		t.Fatalf("list must be key-ordered")
	}
}

func TestPresignUnsupported(t *testing.T) {
	store := New()
	_, err := store.PresignURL(context.Background(), "k", core.SignedURLOptions{})
	if !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestGetReturnsCopies(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Put(ctx, "k", strings.NewReader("abc"), core.PutOptions{Metadata: map[string]string{"a": "1"}}); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, rc, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	_ = rc.Close()
	info.Metadata["a"] = "mutated"
	again, err := store.Head(ctx, "k")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if again.Metadata["a"] != "1" {
		t.Fatalf("metadata shared with caller")
	}
}
