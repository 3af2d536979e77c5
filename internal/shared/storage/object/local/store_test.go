package local

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"meetnotes-backend/internal/shared/storage/object"
)

func TestStorePutOpenDelete(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()
	key := "recordings/meeting-1.webm"

	n, err := store.Put(ctx, key, "audio/webm", bytes.NewReader([]byte("webm-bytes")))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if n != 10 {
		t.Fatalf("expected 10 bytes written, got %d", n)
	}

	got, err := object.ReadAll(ctx, store, key)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "webm-bytes" {
		t.Fatalf("unexpected content %q", got)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("second Delete should be a no-op: %v", err)
	}
	if _, err := store.Open(ctx, key); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreRejectsTraversal(t *testing.T) {
	store := New(t.TempDir())
	ctx := context.Background()

	for _, key := range []string{"../escape", "/etc/passwd", "."} {
		if _, err := store.Put(ctx, key, "", io.LimitReader(bytes.NewReader(nil), 0)); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}
