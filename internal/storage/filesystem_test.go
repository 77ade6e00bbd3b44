package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileSystemStorePutDelete(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFileSystemStore(root, "http://localhost:8080/uploads")
	if err != nil {
		t.Fatalf("NewFileSystemStore: %v", err)
	}
	if err := fs.ValidateSetup(); err != nil {
		t.Fatalf("ValidateSetup: %v", err)
	}

	ctx := context.Background()
	content := []byte("png bytes")
	if err := fs.Put(ctx, "vehicles/v-1/a.png", bytes.NewReader(content), int64(len(content)), "image/png"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "vehicles", "v-1", "a.png"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Fatalf("content mismatch")
	}

	url, err := fs.PublicURL("vehicles/v-1/a.png")
	if err != nil {
		t.Fatalf("PublicURL: %v", err)
	}
	if url != "http://localhost:8080/uploads/vehicles/v-1/a.png" {
		t.Fatalf("unexpected url: %s", url)
	}

	if err := fs.Delete(ctx, "vehicles/v-1/a.png"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := fs.Delete(ctx, "vehicles/v-1/a.png"); err != ErrObjectNotFound {
		t.Fatalf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestFileSystemStoreRejectsEscapingKeys(t *testing.T) {
	fs, err := NewFileSystemStore(t.TempDir(), "http://localhost/uploads")
	if err != nil {
		t.Fatalf("NewFileSystemStore: %v", err)
	}

	for _, key := range []string{"../outside", "/etc/passwd", "a/../../b"} {
		if err := fs.Put(context.Background(), key, bytes.NewReader(nil), 0, ""); err == nil {
			t.Fatalf("expected key %q to be rejected", key)
		}
	}
}
