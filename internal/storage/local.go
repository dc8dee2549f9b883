package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalDisk stores objects under a base directory on the local filesystem
type LocalDisk struct {
	name     string
	basePath string
	baseURL  string
}

func NewLocalDisk(name, basePath, baseURL string) (*LocalDisk, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &LocalDisk{name: name, basePath: basePath, baseURL: baseURL}, nil
}

func (d *LocalDisk) Name() string {
	return d.name
}

// Put writes to a temp file first and renames into place so readers never
// observe a partially written object.
func (d *LocalDisk) Put(ctx context.Context, path string, reader io.Reader) error {
	target := d.resolve(path)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(d.basePath, "upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())

	if _, err := io.Copy(tempFile, reader); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	return os.Rename(tempFile.Name(), target)
}

func (d *LocalDisk) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(d.resolve(path))
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	return f, err
}

func (d *LocalDisk) Delete(ctx context.Context, path string) error {
	if err := os.Remove(d.resolve(path)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (d *LocalDisk) URL(path string) string {
	return joinURL(d.baseURL, "files", path)
}

// SignedURL returns empty: the local disk has no native signing, preview
// URLs for it are signed at the route level instead.
func (d *LocalDisk) SignedURL(ctx context.Context, path string, expires time.Duration) (string, error) {
	return "", nil
}

func (d *LocalDisk) resolve(path string) string {
	return filepath.Join(d.basePath, filepath.FromSlash(path))
}
