// handlers_files.go - Uploaded file handlers
package api

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sunpath-tracker/backend/internal/storage"
	"go.uber.org/zap"
)

const defaultRecentLimit = 20

// FileHandlerImpl implements the FileHandler interface
type FileHandlerImpl struct {
	store        storage.Store
	allowedTypes map[string]bool
	log          *zap.Logger
}

// NewFileHandler creates a new file handler. allowedTypes is a comma separated
// list of extensions such as ".csv,.txt"; empty allows everything.
func NewFileHandler(store storage.Store, allowedTypes string, log *zap.Logger) FileHandler {
	allowed := make(map[string]bool)
	for _, ext := range strings.Split(allowedTypes, ",") {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext != "" {
			allowed[ext] = true
		}
	}
	return &FileHandlerImpl{store: store, allowedTypes: allowed, log: log}
}

// HandleUploadFile accepts a multipart/form-data upload in the "file" field
func (h *FileHandlerImpl) HandleUploadFile(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if len(h.allowedTypes) > 0 && !h.allowedTypes[ext] {
		return NewBadRequestError("unsupported file type: "+ext, nil)
	}

	src, err := file.Open()
	if err != nil {
		return NewBadRequestError("failed to open uploaded file", err)
	}
	defer src.Close()

	info, err := h.store.Save(file.Filename, src)
	if err != nil {
		return NewInternalError("failed to save file", err)
	}

	h.log.Info("file uploaded", zap.String("id", info.ID), zap.String("name", info.Name), zap.Int64("size", info.Size))
	return c.JSON(http.StatusCreated, info)
}

// HandleGetRecentFiles returns recently uploaded files, newest first
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	limit := defaultRecentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return NewValidationError("limit")
		}
		limit = n
	}

	files, err := h.store.List(limit)
	if err != nil {
		return NewInternalError("failed to list files", err)
	}
	return c.JSON(http.StatusOK, files)
}

// HandleGetFile returns metadata for one file
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	info, err := h.store.Get(id)
	if err != nil {
		return storeError(err, id)
	}
	return c.JSON(http.StatusOK, info)
}

// HandleDeleteFile removes a file
func (h *FileHandlerImpl) HandleDeleteFile(c echo.Context) error {
	id := c.Param("id")
	if err := h.store.Delete(id); err != nil {
		return storeError(err, id)
	}
	return c.NoContent(http.StatusNoContent)
}
