package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"cloud.google.com/go/storage"
	"github.com/Daskott/famtree/shared"
	"google.golang.org/api/option"
)

// GCSStore keeps blobs in a Google Cloud Storage bucket, under an optional prefix.
type GCSStore struct {
	storageClient *storage.Client
	bucket        string
	prefix        string
}

func NewGCSStore(ctx context.Context, config shared.GCSStorageConfig) (*GCSStore, error) {
	var client *storage.Client
	var err error

	if config.Bucket == "" {
		return nil, fmt.Errorf("NewGCSStore: bucket is required")
	}

	if config.CredentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsFile))
	} else {
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("NewGCSStore: %v", err)
	}

	return &GCSStore{storageClient: client, bucket: config.Bucket, prefix: config.Prefix}, nil
}

func (gs *GCSStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	wc := gs.object(key).NewWriter(ctx)
	wc.ContentType = contentType
	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("Writer.Close: %v", err)
	}

	return nil
}

func (gs *GCSStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	rc, err := gs.object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("Object(%q).NewReader: %v", key, err)
	}

	return rc, nil
}

func (gs *GCSStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	err := gs.object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return ErrNotFound
	}
	return err
}

func (gs *GCSStore) object(key string) *storage.ObjectHandle {
	return gs.storageClient.Bucket(gs.bucket).Object(path.Join(gs.prefix, key))
}
