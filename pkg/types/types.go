package types

import "time"

// FileMetadata represents the durable record for a stored file
type FileMetadata struct {
	ID        int64     `json:"id" db:"id"`
	FileID    string    `json:"file_id" db:"file_id"`
	Name      string    `json:"name" db:"name"`
	Size      int64     `json:"size" db:"size"`
	MimeType  string    `json:"mime_type" db:"mime_type"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Disk      string    `json:"disk,omitempty" db:"disk"`
	Path      string    `json:"path,omitempty" db:"path"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Finalized reports whether the physical bytes have been relocated out of
// staging and the row points at a permanent disk/path.
func (m *FileMetadata) Finalized() bool {
	return m.Disk != "" && m.Path != ""
}

// StoreFileMetadata carries the fields needed to create a metadata row.
// Built from already-extracted primitives, never from a request object.
type StoreFileMetadata struct {
	FileID   string `json:"file_id"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
	UserID   int64  `json:"user_id"`
}

// ProcessFilePayload is the serialized payload of a file.process job
type ProcessFilePayload struct {
	FileID      string `json:"file_id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	MimeType    string `json:"mime_type"`
	UserID      int64  `json:"user_id"`
	Destination string `json:"destination"`
}

// DeleteFilePayload is the serialized payload of a file.delete job
type DeleteFilePayload struct {
	FileID string `json:"file_id"`
}

// FileListItem is a single entry in the grouped listing
type FileListItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	CreatedAt  time.Time `json:"created_at"`
	Path       string    `json:"path"`
	PreviewURL string    `json:"preview_url"`
}

// Pagination describes the page window of a listing
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	LastPage    int   `json:"last_page"`
}
