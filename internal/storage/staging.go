package storage

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"
)

// Staging holds raw uploaded bytes keyed by file id until a processing job
// relocates them to a permanent disk. Entries are removed on processing
// success; a failed job leaves its entry in place so a retry can re-read it
// without a re-upload. The sweep reclaims entries whose job never succeeded.
type Staging struct {
	basePath string
	logger   *log.Logger
}

func NewStaging(basePath string) (*Staging, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &Staging{
		basePath: basePath,
		logger:   log.New(os.Stdout, "[Staging] ", log.LstdFlags),
	}, nil
}

func (s *Staging) Put(fileID string, reader io.Reader) error {
	f, err := os.Create(s.path(fileID))
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	return f.Close()
}

func (s *Staging) Get(fileID string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(fileID))
	if os.IsNotExist(err) {
		return nil, ErrNotExist
	}
	return f, err
}

func (s *Staging) Delete(fileID string) error {
	if err := os.Remove(s.path(fileID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Sweep removes staged entries older than ttl
func (s *Staging) Sweep(ttl time.Duration) (int, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return 0, err
	}

	removed := 0
	cutoff := time.Now().Add(-ttl)
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() && info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.basePath, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// RunSweeper sweeps on the given interval until the context is cancelled
func (s *Staging) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep(ttl)
			if err != nil {
				s.logger.Printf("sweep failed: %v", err)
			} else if removed > 0 {
				s.logger.Printf("sweep removed %d expired staged uploads", removed)
			}
		}
	}
}

func (s *Staging) path(fileID string) string {
	// file ids are slug-safe, but never trust them as paths
	return filepath.Join(s.basePath, filepath.Base(fileID))
}
