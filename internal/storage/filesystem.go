package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileSystemStore 本地文件系统实现。
// 文件写在 root 下，URL 为 baseURL + "/" + key；
// baseURL 对应的静态路由由 HTTP 服务挂载（/uploads/）。
type FileSystemStore struct {
	root    string
	baseURL string
}

// NewFileSystemStore 创建文件系统对象存储并确保根目录存在。
func NewFileSystemStore(root, baseURL string) (*FileSystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("fs_root is empty")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &FileSystemStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Root 存储根目录（HTTP 静态路由挂载用）。
func (f *FileSystemStore) Root() string {
	return f.root
}

// path 把 key 映射到 root 下的路径，并拒绝越出 root 的 key。
func (f *FileSystemStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key: %s", key)
	}
	return filepath.Join(f.root, clean), nil
}

func (f *FileSystemStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create object dir: %w", err)
	}

	// 先写临时文件再改名，避免读到半个文件。
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	written, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write object: %w", err)
	}
	if size >= 0 && written != size {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to finalize object: %w", err)
	}
	return nil
}

func (f *FileSystemStore) PublicURL(key string) (string, error) {
	if f.baseURL == "" {
		return "", fmt.Errorf("public_base_url is empty")
	}
	return f.baseURL + "/" + key, nil
}

func (f *FileSystemStore) Delete(ctx context.Context, key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if os.IsNotExist(err) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// ValidateSetup 校验根目录可写。
func (f *FileSystemStore) ValidateSetup() error {
	probe, err := os.CreateTemp(f.root, ".probe-*")
	if err != nil {
		return fmt.Errorf("storage root not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
