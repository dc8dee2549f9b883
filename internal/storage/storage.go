// Package storage provides the blob backends behind the ingestion pipeline:
// a named permanent "disk" abstraction plus the temporary staging area that
// holds uploaded bytes until a processing job relocates them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var ErrNotExist = errors.New("object does not exist")

// Disk is a named key-addressed blob backend. Each path is written by at
// most one producer, so implementations need no internal locking.
type Disk interface {
	Name() string
	Put(ctx context.Context, path string, reader io.Reader) error
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	Delete(ctx context.Context, path string) error

	// URL resolves the direct public URL for a stored object.
	URL(path string) string

	// SignedURL resolves a time-limited URL for an object, for backends
	// that can mint one natively. Backends without native signing return
	// an empty string and the caller falls back to route-level signing.
	SignedURL(ctx context.Context, path string, expires time.Duration) (string, error)
}

// Disks holds the configured backends keyed by name
type Disks map[string]Disk

func (d Disks) Get(name string) (Disk, error) {
	disk, ok := d[name]
	if !ok {
		return nil, fmt.Errorf("unknown disk %q", name)
	}
	return disk, nil
}

// joinURL joins a base URL with path segments, collapsing duplicate
// separators so config values with or without trailing slashes behave the
// same.
func joinURL(base string, segments ...string) string {
	parts := []string{strings.TrimRight(base, "/")}
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}
