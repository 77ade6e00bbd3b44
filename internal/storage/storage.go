package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound 对象不存在。
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore 车辆图片的对象存储抽象。
// key 是存储内的相对路径，例如 vehicles/<vehicle_id>/<random>.jpg。
type ObjectStore interface {
	// Put 按 key 存入对象内容。
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// PublicURL 返回对象的公开可访问 URL。
	PublicURL(key string) (string, error)
	// Delete 按 key 删除对象；对象不存在返回 ErrObjectNotFound。
	Delete(ctx context.Context, key string) error
	// ValidateSetup 校验后端可用（bucket 可达、目录可写等）。
	ValidateSetup() error
}
