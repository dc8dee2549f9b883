package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/avolkov/filehub/internal/metadata"
	"github.com/avolkov/filehub/internal/queue"
	"github.com/avolkov/filehub/internal/storage"
	"github.com/avolkov/filehub/pkg/types"
)

// Workers holds the background job handlers for the pipeline
type Workers struct {
	files   *FileService
	staging *storage.Staging
	disks   storage.Disks
	config  Config
	logger  *log.Logger
}

func NewWorkers(files *FileService, staging *storage.Staging, disks storage.Disks, config Config) *Workers {
	config.normalize()
	return &Workers{
		files:   files,
		staging: staging,
		disks:   disks,
		config:  config,
		logger:  log.New(os.Stdout, "[Workers] ", log.LstdFlags),
	}
}

// Register binds the pipeline handlers to their job types
func (w *Workers) Register(q *queue.Queue) {
	q.Register(JobProcessFile, w.ProcessFile)
	q.Register(JobDeleteFile, w.DeleteFile)
}

// ProcessFile moves an accepted upload from staging to permanent storage
// and finalizes its metadata. Errors while reading staging, relocating or
// finalizing are returned so the queue's retry policy governs re-attempts;
// a declined metadata create (unknown owner, duplicate id) is a terminal
// business outcome and ends the job without relocating anything.
func (w *Workers) ProcessFile(ctx context.Context, raw []byte) error {
	var p types.ProcessFilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		w.logger.Printf("undecodable process payload, dropping: %v", err)
		return nil
	}

	contents, err := w.staging.Get(p.FileID)
	if err != nil {
		w.logger.Printf("error processing upload file_id=%s: %v", p.FileID, err)
		return fmt.Errorf("read staging for %s: %w", p.FileID, err)
	}
	defer contents.Close()

	resp := w.files.StoreMetadata(ctx, &types.StoreFileMetadata{
		FileID:   p.FileID,
		Name:     p.Name,
		Size:     p.Size,
		MimeType: p.MimeType,
		UserID:   p.UserID,
	})
	if !resp.Success {
		if resp.ErrorCode == types.CodeDeclined {
			w.logger.Printf("metadata declined for file_id=%s: %s", p.FileID, resp.Message)
			return nil
		}
		w.logger.Printf("error processing upload file_id=%s: %s", p.FileID, resp.Message)
		return fmt.Errorf("store metadata for %s: %s", p.FileID, resp.Message)
	}

	disk, err := w.disks.Get(w.config.DefaultDisk)
	if err != nil {
		w.logger.Printf("error processing upload file_id=%s: %v", p.FileID, err)
		return err
	}

	path := p.Destination + "/" + p.FileID
	if err := disk.Put(ctx, path, contents); err != nil {
		w.logger.Printf("error processing upload file_id=%s: %v", p.FileID, err)
		return fmt.Errorf("relocate %s: %w", p.FileID, err)
	}

	// The staged copy is only removed after a successful permanent write;
	// if removal itself fails the sweep reclaims it later.
	if err := w.staging.Delete(p.FileID); err != nil {
		w.logger.Printf("staging cleanup failed for file_id=%s: %v", p.FileID, err)
	}

	if err := w.files.store.Finalize(ctx, p.FileID, disk.Name(), path); err != nil {
		w.logger.Printf("error processing upload file_id=%s: %v", p.FileID, err)
		return fmt.Errorf("finalize %s: %w", p.FileID, err)
	}

	return nil
}

// DeleteFile removes the physical object behind a deleted file. The
// metadata row is usually gone already; a missing row, a never-finalized
// row or an already-deleted object are all quiet no-ops.
func (w *Workers) DeleteFile(ctx context.Context, raw []byte) error {
	var p types.DeleteFilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		w.logger.Printf("undecodable delete payload, dropping: %v", err)
		return nil
	}

	m, err := w.files.store.GetByFileID(ctx, p.FileID)
	if errors.Is(err, metadata.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup %s for deletion: %w", p.FileID, err)
	}

	if m.Finalized() {
		disk, err := w.disks.Get(m.Disk)
		if err != nil {
			w.logger.Printf("file_id=%s references unknown disk %q, removing row only", p.FileID, m.Disk)
		} else if err := disk.Delete(ctx, m.Path); err != nil {
			return fmt.Errorf("delete object for %s: %w", p.FileID, err)
		}
	}

	if _, err := w.files.store.DeleteByFileID(ctx, p.FileID); err != nil {
		return fmt.Errorf("delete row for %s: %w", p.FileID, err)
	}
	return nil
}
