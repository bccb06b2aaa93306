package storage

import (
	"context"
	"time"
)

// Service hands out short lived URLs for objects in remote storage.
// The server never proxies object bytes; clients upload and download directly.
type Service interface {
	PresignUpload(ctx context.Context, key, contentType string, expires time.Duration) (string, error)
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
	DeleteObject(ctx context.Context, key string) error
	ObjectExists(ctx context.Context, key string) (bool, error)
}
