// Package blob stores uploaded family media bytes. The driver is picked by
// the storage section of the server config: local, gcs or s3.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Daskott/famtree/shared"
)

const (
	LOCAL_DRIVER = "local"
	GCS_DRIVER   = "gcs"
	S3_DRIVER    = "s3"

	DEFAULT_LOCAL_DIR = "media"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidKey = errors.New("invalid blob key")
)

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// New returns the Store selected by config.Driver.
func New(ctx context.Context, config shared.StorageConfig) (Store, error) {
	switch config.Driver {
	case LOCAL_DRIVER, "":
		dir := config.Local.Dir
		if dir == "" {
			dir = DEFAULT_LOCAL_DIR
		}
		return NewLocalStore(dir)
	case GCS_DRIVER:
		return NewGCSStore(ctx, config.GCS)
	case S3_DRIVER:
		return NewS3Store(ctx, config.S3)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", config.Driver)
	}
}

// validateKey rejects empty keys, absolute keys and keys escaping their prefix.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}

	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}
