package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/avolkov/filehub/internal/fileid"
	"github.com/avolkov/filehub/internal/queue"
	"github.com/avolkov/filehub/internal/storage"
	"github.com/avolkov/filehub/pkg/types"
)

// FilePayload carries an incoming upload as already-extracted primitives
type FilePayload struct {
	Name     string
	Size     int64
	MimeType string
	Reader   io.Reader
}

// UploadService validates an incoming upload, stages the bytes and
// schedules the processing job. It never writes metadata itself; that
// happens out of band in the processing worker.
type UploadService struct {
	staging *storage.Staging
	jobs    *queue.Queue
	config  Config
	logger  *log.Logger
}

func NewUploadService(staging *storage.Staging, jobs *queue.Queue, config Config) *UploadService {
	config.normalize()
	return &UploadService{
		staging: staging,
		jobs:    jobs,
		config:  config,
		logger:  log.New(os.Stdout, "[UploadService] ", log.LstdFlags),
	}
}

// Upload accepts a file for asynchronous ingestion. On acceptance the bytes
// sit in staging and exactly one processing job is enqueued; the response
// carries the generated file id and the retrieval URL. An oversized payload
// is rejected up front with no side effects.
func (s *UploadService) Upload(ctx context.Context, userID int64, file FilePayload, destination string) *types.APIResponse {
	if file.Size > s.config.MaxUploadSizeKB*1024 {
		return types.Declined("File size exceeds maximum allowed", types.CodePayloadTooLarge, nil)
	}

	if destination == "" {
		destination = s.config.DefaultPath
	}

	fileID := fileid.New(file.Name, fileid.DefaultPrefix, fileid.DefaultLength)

	if err := s.staging.Put(fileID, file.Reader); err != nil {
		s.logger.Printf("staging write failed for %s: %v", fileID, err)
		return types.Error("File upload failed", types.CodeInternal, s.config.debugErrors(err))
	}

	payload := &types.ProcessFilePayload{
		FileID:      fileID,
		Name:        file.Name,
		Size:        file.Size,
		MimeType:    file.MimeType,
		UserID:      userID,
		Destination: destination,
	}
	if _, err := s.jobs.Enqueue(ctx, JobProcessFile, payload, s.config.ProcessDelay); err != nil {
		s.logger.Printf("enqueue failed for %s: %v", fileID, err)
		return types.Error("File upload failed", types.CodeInternal, s.config.debugErrors(err))
	}

	return types.OK("File upload queued for processing", types.CodeAccepted, map[string]interface{}{
		"file_id": fileID,
		"url":     fmt.Sprintf("%s/api/files/%s", s.config.BaseURL, fileID),
	})
}

// MaxUploadBytes is the hard ceiling enforced on upload payloads
func (s *UploadService) MaxUploadBytes() int64 {
	return s.config.MaxUploadSizeKB * 1024
}
