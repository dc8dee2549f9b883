// Package metadata is the durable record of file ownership and location.
// It is the single source of truth for the pipeline and the only component
// requiring transactional discipline.
package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/avolkov/filehub/pkg/types"
)

var (
	ErrNotFound     = errors.New("metadata not found")
	ErrDuplicate    = errors.New("duplicate file id")
	ErrUnknownOwner = errors.New("owner does not exist")
)

// Store wraps the sqlite database holding file metadata and users
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.initTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) initTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS file_metadata (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		size INTEGER NOT NULL CHECK (size >= 0),
		mime_type TEXT NOT NULL,
		user_id INTEGER NOT NULL REFERENCES users(id),
		disk TEXT,
		path TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_file_metadata_user_id ON file_metadata(user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping() error {
	return s.db.Ping()
}

// Create inserts a provisional metadata row inside a transaction. Concurrent
// creates for the same file id are serialized by the UNIQUE constraint; the
// loser's transaction is rolled back and reported as ErrDuplicate.
func (s *Store) Create(ctx context.Context, dto *types.StoreFileMetadata) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO file_metadata (file_id, name, size, mime_type, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		dto.FileID, dto.Name, dto.Size, dto.MimeType, dto.UserID, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert metadata: %w", err)
	}

	return tx.Commit()
}

// Finalize records the permanent disk and path once relocation completes
func (s *Store) Finalize(ctx context.Context, fileID, disk, path string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE file_metadata SET disk = ?, path = ?, updated_at = ? WHERE file_id = ?",
		disk, path, time.Now().UTC(), fileID,
	)
	if err != nil {
		return fmt.Errorf("finalize metadata: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = "id, file_id, name, size, mime_type, user_id, COALESCE(disk, ''), COALESCE(path, ''), created_at, updated_at"

// GetByFileID looks a row up by file id alone. Used by workers and the
// preview path, which authenticate by signature rather than by owner.
func (s *Store) GetByFileID(ctx context.Context, fileID string) (*types.FileMetadata, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM file_metadata WHERE file_id = ?", fileID)
	return scanMetadata(row)
}

// GetByFileIDAndOwner returns the row matching both the file id and the
// owner. A row owned by someone else scans out identically to a missing row.
func (s *Store) GetByFileIDAndOwner(ctx context.Context, fileID string, ownerID int64) (*types.FileMetadata, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM file_metadata WHERE file_id = ? AND user_id = ?", fileID, ownerID)
	return scanMetadata(row)
}

// ListByOwner returns one page of the owner's files, newest first, plus the
// total count for pagination.
func (s *Store) ListByOwner(ctx context.Context, ownerID int64, page, perPage int) ([]*types.FileMetadata, int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM file_metadata WHERE user_id = ?", ownerID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count metadata: %w", err)
	}

	offset := (page - 1) * perPage
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+selectColumns+" FROM file_metadata WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		ownerID, perPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list metadata: %w", err)
	}
	defer rows.Close()

	var result []*types.FileMetadata
	for rows.Next() {
		m, err := scanMetadata(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return result, total, nil
}

// DeleteByFileID removes the row if present. Returns whether a row existed;
// an absent row is not an error.
func (s *Store) DeleteByFileID(ctx context.Context, fileID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM file_metadata WHERE file_id = ?", fileID)
	if err != nil {
		return false, fmt.Errorf("delete metadata: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UserExists reports whether the owner id resolves to a known user
func (s *Store) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", userID).Scan(&exists)
	return exists, err
}

// CreateUser inserts a user row and returns its id. The authentication
// collaborator owns users; this exists for provisioning and tests.
func (s *Store) CreateUser(ctx context.Context, name string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "INSERT INTO users (name) VALUES (?)", name)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMetadata(row scanner) (*types.FileMetadata, error) {
	m := &types.FileMetadata{}
	err := row.Scan(&m.ID, &m.FileID, &m.Name, &m.Size, &m.MimeType, &m.UserID,
		&m.Disk, &m.Path, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
