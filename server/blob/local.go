package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Daskott/famtree/utils"
)

// LocalStore keeps blobs as files under a root directory.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	err := utils.CreateDirIfNotExist(root)
	if err != nil {
		return nil, fmt.Errorf("NewLocalStore: %v", err)
	}

	return &LocalStore{root: root}, nil
}

func (ls *LocalStore) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	path, err := ls.pathFor(key)
	if err != nil {
		return err
	}

	err = utils.CreateDirIfNotExist(filepath.Dir(path))
	if err != nil {
		return err
	}

	// write to a temp file first so readers never see a partial blob
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err = io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("io.Copy: %v", err)
	}

	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

func (ls *LocalStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := ls.pathFor(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return f, nil
}

func (ls *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := ls.pathFor(key)
	if err != nil {
		return err
	}

	err = os.Remove(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

func (ls *LocalStore) pathFor(key string) (string, error) {
	if err := validateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(ls.root, filepath.FromSlash(key)), nil
}
