package qart

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket failed: %v", err)
	}

	key := GenerationKey("run1", 0, "png")
	if key != "generations/run1/0.png" {
		t.Fatalf("unexpected key %s", key)
	}
	a, err := store.Upload(ctx, key, strings.NewReader("pixels"), -1, "image/png", map[string]string{"model": "bfl/flux"})
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	if a.Size != 6 {
		t.Fatalf("expected size 6, got %d", a.Size)
	}

	rc, err := store.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "pixels" {
		t.Fatalf("unexpected content %q", data)
	}

	items, err := store.List(ctx, GenerationPrefix("run1"))
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 || items[0].ContentType != "image/png" || items[0].Metadata["model"] != "bfl/flux" {
		t.Fatalf("unexpected listing %+v", items)
	}

	u, err := store.URL(ctx, key, 0)
	if err != nil || !strings.HasPrefix(u, "file://") {
		t.Fatalf("unexpected URL %q, %v", u, err)
	}
}

func TestLocalStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	store, _ := NewLocalStore(t.TempDir())

	for _, key := range []string{GenerationKey("a", 0, "png"), GenerationKey("a", 1, "png"), GenerationKey("b", 0, "png")} {
		if _, err := store.Upload(ctx, key, strings.NewReader("x"), 1, "image/png", nil); err != nil {
			t.Fatalf("Upload %s failed: %v", key, err)
		}
	}
	if err := store.DeletePrefix(ctx, GenerationPrefix("a")); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	items, _ := store.List(ctx, "generations/")
	if len(items) != 1 || items[0].Key != "generations/b/0.png" {
		t.Fatalf("unexpected remaining items %+v", items)
	}
	if _, err := store.Download(ctx, GenerationKey("a", 0, "png")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStore_KeyEscape(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir())
	ctx := context.Background()

	// Cleaning roots the key, so traversal stays inside the store.
	if _, err := store.Upload(ctx, "../../outside.png", strings.NewReader("x"), 1, "", nil); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	items, _ := store.List(ctx, "")
	if len(items) != 1 || items[0].Key != "outside.png" {
		t.Fatalf("key not confined: %+v", items)
	}
	if _, err := store.Upload(ctx, "", strings.NewReader("x"), 1, "", nil); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store, _ := NewLocalStore(t.TempDir() + "/never-created")
	items, err := store.List(context.Background(), "")
	if err != nil || len(items) != 0 {
		t.Fatalf("expected empty listing, got %v, %v", items, err)
	}
}
