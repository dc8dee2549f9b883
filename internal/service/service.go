// Package service implements the ingestion pipeline: the upload
// orchestrator, the metadata management operations, and the background job
// handlers that move bytes from staging to permanent storage and delete
// them after a grace period.
package service

import (
	"time"
)

// Job types understood by the queue runner
const (
	JobProcessFile = "file.process"
	JobDeleteFile  = "file.delete"
)

// Config is the explicit configuration passed into each pipeline component
// at construction.
type Config struct {
	DefaultDisk     string
	DefaultPath     string
	PreviewDuration time.Duration
	MaxUploadSizeKB int64
	BaseURL         string
	ProcessDelay    time.Duration
	DeleteDelay     time.Duration
	PerPage         int
	Debug           bool
}

func (c *Config) normalize() {
	if c.DefaultDisk == "" {
		c.DefaultDisk = "local"
	}
	if c.DefaultPath == "" {
		c.DefaultPath = "uploads"
	}
	if c.PreviewDuration <= 0 {
		c.PreviewDuration = 60 * time.Minute
	}
	if c.MaxUploadSizeKB <= 0 {
		c.MaxUploadSizeKB = 4096
	}
	if c.ProcessDelay <= 0 {
		c.ProcessDelay = 3 * time.Second
	}
	if c.DeleteDelay <= 0 {
		c.DeleteDelay = 3 * time.Second
	}
	if c.PerPage <= 0 {
		c.PerPage = 15
	}
}

// debugErrors exposes raw error detail only outside production mode
func (c *Config) debugErrors(err error) map[string]interface{} {
	if !c.Debug || err == nil {
		return nil
	}
	return map[string]interface{}{"error": err.Error()}
}
