package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalDisk_PutGetDelete(t *testing.T) {
	disk, err := NewLocalDisk("local", t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	ctx := context.Background()
	content := []byte("hello filehub")

	err = disk.Put(ctx, "uploads/file_1_abc", strings.NewReader(string(content)))
	require.NoError(t, err)

	reader, err := disk.Get(ctx, "uploads/file_1_abc")
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, content, got)

	require.NoError(t, disk.Delete(ctx, "uploads/file_1_abc"))

	_, err = disk.Get(ctx, "uploads/file_1_abc")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalDisk_DeleteMissingIsNoop(t *testing.T) {
	disk, err := NewLocalDisk("local", t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	assert.NoError(t, disk.Delete(context.Background(), "uploads/never-existed"))
}

func TestLocalDisk_URLCollapsesSeparators(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		path    string
		want    string
	}{
		{"trailing slash on base", "http://localhost:8080/", "uploads/f1", "http://localhost:8080/files/uploads/f1"},
		{"leading slash on path", "http://localhost:8080", "/uploads/f1", "http://localhost:8080/files/uploads/f1"},
		{"both", "http://localhost:8080/", "/uploads/f1/", "http://localhost:8080/files/uploads/f1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			disk, err := NewLocalDisk("local", t.TempDir(), tt.baseURL)
			require.NoError(t, err)
			assert.Equal(t, tt.want, disk.URL(tt.path))
		})
	}
}

func TestStaging_RoundTrip(t *testing.T) {
	staging, err := NewStaging(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, staging.Put("file_1_abc", strings.NewReader("staged bytes")))

	reader, err := staging.Get("file_1_abc")
	require.NoError(t, err)
	got, _ := io.ReadAll(reader)
	reader.Close()
	assert.Equal(t, "staged bytes", string(got))

	require.NoError(t, staging.Delete("file_1_abc"))
	_, err = staging.Get("file_1_abc")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestStaging_GetMissing(t *testing.T) {
	staging, err := NewStaging(t.TempDir())
	require.NoError(t, err)

	_, err = staging.Get("file_nope")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestStaging_SweepRemovesOnlyExpired(t *testing.T) {
	dir := t.TempDir()
	staging, err := NewStaging(dir)
	require.NoError(t, err)

	require.NoError(t, staging.Put("file_old", strings.NewReader("old")))
	require.NoError(t, staging.Put("file_new", strings.NewReader("new")))

	// age the first entry past the TTL
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "file_old"), old, old))

	removed, err := staging.Sweep(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = staging.Get("file_old")
	assert.ErrorIs(t, err, ErrNotExist)
	_, err = staging.Get("file_new")
	assert.NoError(t, err)
}

func TestDisks_Get(t *testing.T) {
	local, err := NewLocalDisk("local", t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)

	disks := Disks{"local": local}

	got, err := disks.Get("local")
	require.NoError(t, err)
	assert.Equal(t, "local", got.Name())

	_, err = disks.Get("gcs")
	assert.Error(t, err)
}
