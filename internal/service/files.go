package service

import (
	"context"
	"errors"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/avolkov/filehub/internal/metadata"
	"github.com/avolkov/filehub/internal/queue"
	"github.com/avolkov/filehub/internal/storage"
	"github.com/avolkov/filehub/internal/urlsign"
	"github.com/avolkov/filehub/pkg/types"
)

// typeLabels maps MIME types from the upload allow-list to grouping labels
var typeLabels = map[string]string{
	"image/jpg":       "JPG",
	"image/jpeg":      "JPG",
	"image/png":       "PNG",
	"application/pdf": "PDF",
}

// FileService owns the metadata lifecycle: transactional creation, scoped
// retrieval, grouped listing and the delete path that schedules deferred
// physical deletion.
type FileService struct {
	store  *metadata.Store
	disks  storage.Disks
	signer *urlsign.Signer
	jobs   *queue.Queue
	config Config
	logger *log.Logger
}

func NewFileService(store *metadata.Store, disks storage.Disks, signer *urlsign.Signer, jobs *queue.Queue, config Config) *FileService {
	config.normalize()
	return &FileService{
		store:  store,
		disks:  disks,
		signer: signer,
		jobs:   jobs,
		config: config,
		logger: log.New(os.Stdout, "[FileService] ", log.LstdFlags),
	}
}

// StoreMetadata creates the metadata row for a processed file. An unknown
// owner or a duplicate file id is a declined business outcome, not an
// error; only unexpected store failures surface as internal errors.
func (s *FileService) StoreMetadata(ctx context.Context, dto *types.StoreFileMetadata) *types.APIResponse {
	exists, err := s.store.UserExists(ctx, dto.UserID)
	if err != nil {
		return types.Error("Failed to store file metadata", types.CodeInternal, s.config.debugErrors(err))
	}
	if !exists {
		return types.Declined("User not found", types.CodeDeclined, nil)
	}

	if err := s.store.Create(ctx, dto); err != nil {
		if errors.Is(err, metadata.ErrDuplicate) {
			return types.Declined("Duplicate file ID or other constraint violation", types.CodeDeclined, nil)
		}
		return types.Error("Failed to store file metadata", types.CodeInternal, s.config.debugErrors(err))
	}

	return types.OK("File metadata stored successfully", types.CodeCreated, map[string]interface{}{
		"file_id": dto.FileID,
	})
}

// GetMetadata returns the row matching both the file id and the owner,
// augmented with the direct URL and a fresh signed preview URL. A file
// owned by someone else is indistinguishable from a missing one.
func (s *FileService) GetMetadata(ctx context.Context, fileID string, ownerID int64) *types.APIResponse {
	m, err := s.store.GetByFileIDAndOwner(ctx, fileID, ownerID)
	if errors.Is(err, metadata.ErrNotFound) {
		return types.NotFound("File metadata not found")
	}
	if err != nil {
		return types.Error("Failed to retrieve file metadata", types.CodeInternal, s.config.debugErrors(err))
	}

	return types.OK("File metadata retrieved successfully", types.CodeOK, map[string]interface{}{
		"file_id":     m.FileID,
		"name":        m.Name,
		"size":        m.Size,
		"mime_type":   m.MimeType,
		"user_id":     m.UserID,
		"disk":        m.Disk,
		"created_at":  m.CreatedAt,
		"updated_at":  m.UpdatedAt,
		"path":        s.directURL(m),
		"preview_url": s.previewURL(m.FileID),
	})
}

// GetByFileID resolves a row by file id alone, for callers that
// authenticate some other way (the signed preview route).
func (s *FileService) GetByFileID(ctx context.Context, fileID string) (*types.FileMetadata, error) {
	return s.store.GetByFileID(ctx, fileID)
}

// ListGroupedByType returns one page of the owner's files grouped by a
// normalized type label, with pagination metadata.
func (s *FileService) ListGroupedByType(ctx context.Context, ownerID int64, page int) *types.APIResponse {
	exists, err := s.store.UserExists(ctx, ownerID)
	if err != nil {
		return types.Error("Failed to list files", types.CodeInternal, s.config.debugErrors(err))
	}
	if !exists {
		return types.Declined("User not found", types.CodeDeclined, nil)
	}

	if page < 1 {
		page = 1
	}

	files, total, err := s.store.ListByOwner(ctx, ownerID, page, s.config.PerPage)
	if err != nil {
		s.logger.Printf("listing failed for user %d: %v", ownerID, err)
		return types.Error("Failed to list files", types.CodeInternal, s.config.debugErrors(err))
	}

	grouped := make(map[string][]types.FileListItem)
	for _, m := range files {
		item := types.FileListItem{
			ID:         m.FileID,
			Name:       m.Name,
			Size:       m.Size,
			CreatedAt:  m.CreatedAt,
			Path:       s.directURL(m),
			PreviewURL: s.previewURL(m.FileID),
		}
		label := typeLabel(m.MimeType)
		grouped[label] = append(grouped[label], item)
	}

	lastPage := int(math.Ceil(float64(total) / float64(s.config.PerPage)))
	if lastPage < 1 {
		lastPage = 1
	}

	return types.OK("Files retrieved successfully", types.CodeOK, map[string]interface{}{
		"grouped_files": grouped,
		"pagination": types.Pagination{
			CurrentPage: page,
			PerPage:     s.config.PerPage,
			Total:       total,
			LastPage:    lastPage,
		},
	})
}

// DeleteMetadata removes the metadata row if present and unconditionally
// schedules the deferred deletion job, so orphaned physical objects from a
// prior partial failure still get cleaned up. Always succeeds.
func (s *FileService) DeleteMetadata(ctx context.Context, fileID string) *types.APIResponse {
	existed, err := s.store.DeleteByFileID(ctx, fileID)
	if err != nil {
		return types.Error("Failed to delete file", types.CodeInternal, s.config.debugErrors(err))
	}
	if !existed {
		s.logger.Printf("delete requested for unknown file id %s, scheduling cleanup anyway", fileID)
	}

	payload := &types.DeleteFilePayload{FileID: fileID}
	if _, err := s.jobs.Enqueue(ctx, JobDeleteFile, payload, s.config.DeleteDelay); err != nil {
		return types.Error("Failed to delete file", types.CodeInternal, s.config.debugErrors(err))
	}

	return types.OK("File deleted successfully", types.CodeOK, nil)
}

// SignedObjectURL asks the disk holding a finalized file for a natively
// signed URL (an S3 presigned GET), or returns empty when the backend has
// no native signing.
func (s *FileService) SignedObjectURL(ctx context.Context, m *types.FileMetadata) (string, error) {
	if !m.Finalized() {
		return "", nil
	}
	disk, err := s.disks.Get(m.Disk)
	if err != nil {
		return "", err
	}
	return disk.SignedURL(ctx, m.Path, s.config.PreviewDuration)
}

// directURL joins the disk's public base with the stored path. Provisional
// rows have no permanent location yet and resolve to an empty URL.
func (s *FileService) directURL(m *types.FileMetadata) string {
	if !m.Finalized() {
		return ""
	}
	disk, err := s.disks.Get(m.Disk)
	if err != nil {
		s.logger.Printf("row %s references unknown disk %q", m.FileID, m.Disk)
		return ""
	}
	return disk.URL(m.Path)
}

func (s *FileService) previewURL(fileID string) string {
	return s.signer.Sign(strings.TrimRight(s.config.BaseURL, "/"), fileID, time.Now().Add(s.config.PreviewDuration))
}

func typeLabel(mimeType string) string {
	if label, ok := typeLabels[mimeType]; ok {
		return label
	}
	if i := strings.LastIndex(mimeType, "/"); i >= 0 && i < len(mimeType)-1 {
		return strings.ToUpper(mimeType[i+1:])
	}
	return "OTHER"
}
