package storage

import (
	"context"
	"fmt"

	"github.com/inventoryapp/inventoryapp/internal/common/config"
)

// NewObjectStoreFromConfig 按配置类型创建 ObjectStore。
func NewObjectStoreFromConfig(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(cfg.PublicBaseURL), nil
	case "s3":
		return NewS3Store(ctx, cfg)
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem storage requires fs_root to be set")
		}
		return NewFileSystemStore(cfg.FSRoot, cfg.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
