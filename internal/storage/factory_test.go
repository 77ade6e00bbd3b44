package storage

import (
	"context"
	"testing"

	"github.com/inventoryapp/inventoryapp/internal/common/config"
)

func TestNewObjectStoreFromConfig(t *testing.T) {
	ctx := context.Background()

	if _, err := NewObjectStoreFromConfig(ctx, config.StorageConfig{Type: "memory"}); err != nil {
		t.Fatalf("memory: %v", err)
	}

	if _, err := NewObjectStoreFromConfig(ctx, config.StorageConfig{Type: "filesystem"}); err == nil {
		t.Fatalf("expected error for filesystem without fs_root")
	}

	if _, err := NewObjectStoreFromConfig(ctx, config.StorageConfig{
		Type:          "filesystem",
		FSRoot:        t.TempDir(),
		PublicBaseURL: "http://localhost/uploads",
	}); err != nil {
		t.Fatalf("filesystem: %v", err)
	}

	if _, err := NewObjectStoreFromConfig(ctx, config.StorageConfig{Type: "gopher"}); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
