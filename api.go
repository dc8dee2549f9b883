package main

import (
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/filehub/internal/auth"
	"github.com/avolkov/filehub/internal/metadata"
	"github.com/avolkov/filehub/internal/service"
	"github.com/avolkov/filehub/internal/storage"
	"github.com/avolkov/filehub/internal/urlsign"
	"github.com/avolkov/filehub/pkg/types"
)

// allowedMimeTypes is the closed allow-list enforced before the upload
// orchestrator runs.
var allowedMimeTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpg":       true,
	"image/jpeg":      true,
}

type API struct {
	upload     *service.UploadService
	files      *service.FileService
	store      *metadata.Store
	disks      storage.Disks
	signer     *urlsign.Signer
	authSecret []byte
}

func NewAPI(upload *service.UploadService, files *service.FileService, store *metadata.Store, disks storage.Disks, signer *urlsign.Signer, authSecret []byte) *API {
	return &API{
		upload:     upload,
		files:      files,
		store:      store,
		disks:      disks,
		signer:     signer,
		authSecret: authSecret,
	}
}

func (a *API) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/status", a.status)

	// preview authenticates by URL signature, not by bearer token
	router.GET("/api/files/:fileId/preview", a.previewFile)

	api := router.Group("/api")
	api.Use(a.authMiddleware())

	api.POST("/files", a.uploadFile)
	api.GET("/files", a.listFiles)
	api.GET("/files/:fileId", a.getFile)
	api.DELETE("/files/:fileId", a.deleteFile)
}

func respond(c *gin.Context, resp *types.APIResponse) {
	c.JSON(resp.ErrorCode, resp)
}

// authMiddleware resolves the caller's identity from the bearer token and
// aborts with Unauthorized before any core logic runs.
func (a *API) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			respond(c, types.Error("Unauthenticated", types.CodeUnauthorized, nil))
			c.Abort()
			return
		}

		userID, err := auth.UserIDFromToken(token, a.authSecret)
		if err != nil {
			respond(c, types.Error("Unauthenticated", types.CodeUnauthorized, nil))
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64("userID")
}

func (a *API) uploadFile(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respond(c, types.Declined("Validation failed", types.CodeValidationFailed, map[string]interface{}{
			"file": []string{"The file field is required."},
		}))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !allowedMimeTypes[mimeType] {
		respond(c, types.Declined("Validation failed", types.CodeValidationFailed, map[string]interface{}{
			"file": []string{"The file must be a file of type: application/pdf, image/png, image/jpg, image/jpeg."},
		}))
		return
	}

	resp := a.upload.Upload(c.Request.Context(), currentUserID(c), service.FilePayload{
		Name:     header.Filename,
		Size:     header.Size,
		MimeType: mimeType,
		Reader:   file,
	}, c.PostForm("destination"))
	respond(c, resp)
}

func (a *API) getFile(c *gin.Context) {
	resp := a.files.GetMetadata(c.Request.Context(), c.Param("fileId"), currentUserID(c))
	respond(c, resp)
}

func (a *API) listFiles(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	resp := a.files.ListGroupedByType(c.Request.Context(), currentUserID(c), page)
	respond(c, resp)
}

func (a *API) deleteFile(c *gin.Context) {
	resp := a.files.DeleteMetadata(c.Request.Context(), c.Param("fileId"))
	respond(c, resp)
}

// previewFile streams a file's bytes when presented with a valid signed
// URL. A tampered signature, an elapsed expiry, an unknown id and a
// not-yet-finalized file all yield the same NotFound envelope.
func (a *API) previewFile(c *gin.Context) {
	fileID := c.Param("fileId")

	if !a.signer.Verify(fileID, c.Query("expires"), c.Query("signature"), time.Now()) {
		respond(c, types.NotFound("File metadata not found"))
		return
	}

	m, err := a.files.GetByFileID(c.Request.Context(), fileID)
	if err != nil || !m.Finalized() {
		respond(c, types.NotFound("File metadata not found"))
		return
	}

	// S3-backed files redirect to a presigned object URL instead of
	// proxying the bytes through this process.
	if signed, err := a.files.SignedObjectURL(c.Request.Context(), m); err == nil && signed != "" {
		c.Redirect(302, signed)
		return
	}

	disk, err := a.disks.Get(m.Disk)
	if err != nil {
		respond(c, types.NotFound("File metadata not found"))
		return
	}

	reader, err := disk.Get(c.Request.Context(), m.Path)
	if err != nil {
		respond(c, types.NotFound("File metadata not found"))
		return
	}
	defer reader.Close()

	c.Header("Content-Disposition", "inline")
	c.Header("Content-Type", m.MimeType)
	c.Status(200)
	io.Copy(c.Writer, reader)
}

func (a *API) status(c *gin.Context) {
	if err := a.store.Ping(); err != nil {
		respond(c, types.Error("Service degraded", types.CodeInternal, nil))
		return
	}
	respond(c, types.OK("Service is running", types.CodeOK, map[string]interface{}{
		"status": "ok",
	}))
}
