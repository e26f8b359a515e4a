// handlers_load.go - Load operation handlers
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sunpath-tracker/backend/internal/loader"
	"github.com/sunpath-tracker/backend/internal/models"
	"github.com/sunpath-tracker/backend/internal/playback"
	"github.com/sunpath-tracker/backend/internal/storage"
	"go.uber.org/zap"
)

const (
	progressInterval = 100 * time.Millisecond
	progressTimeout  = 30 * time.Minute
)

// LoadHandlerImpl implements the LoadHandler interface
type LoadHandlerImpl struct {
	store           storage.Store
	loader          LoadController
	settings        *playback.Settings
	onProgress      loader.ProgressFunc
	onDone          loader.DoneFunc
	allowLocalPaths bool
	log             *zap.Logger
}

// NewLoadHandler creates a new load handler. onProgress and onDone receive the
// callbacks of every load started through the API.
func NewLoadHandler(store storage.Store, ldr LoadController, settings *playback.Settings,
	onProgress loader.ProgressFunc, onDone loader.DoneFunc, allowLocalPaths bool, log *zap.Logger) LoadHandler {
	return &LoadHandlerImpl{
		store:           store,
		loader:          ldr,
		settings:        settings,
		onProgress:      onProgress,
		onDone:          onDone,
		allowLocalPaths: allowLocalPaths,
		log:             log,
	}
}

// Request/Response types

type startLoadRequest struct {
	FileID string `json:"fileId"`
	Path   string `json:"path"`
}

type startLoadResponse struct {
	LoadID string                `json:"loadId"`
	Path   string                `json:"path"`
	Config models.PlaybackConfig `json:"config"`
}

// HandleStartLoad starts loading an uploaded file, or a local path when that
// is enabled. A running load is superseded.
func (h *LoadHandlerImpl) HandleStartLoad(c echo.Context) error {
	var req startLoadRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	path, err := h.resolvePath(req)
	if err != nil {
		return err
	}

	cfg := h.settings.Playback()
	id := h.loader.Load(path, cfg, h.onProgress, h.onDone)
	h.log.Info("load requested",
		zap.String("load", id),
		zap.String("path", path),
		zap.String("remote", c.RealIP()),
	)

	return c.JSON(http.StatusAccepted, startLoadResponse{LoadID: id, Path: path, Config: cfg})
}

func (h *LoadHandlerImpl) resolvePath(req startLoadRequest) (string, error) {
	switch {
	case req.FileID != "" && req.Path != "":
		return "", NewBadRequestError("specify either fileId or path, not both", nil)
	case req.FileID != "":
		path, err := h.store.GetFilePath(req.FileID)
		if err != nil {
			return "", storeError(err, req.FileID)
		}
		return path, nil
	case req.Path != "":
		if !h.allowLocalPaths {
			return "", NewForbiddenError("loading local paths is disabled")
		}
		return req.Path, nil
	default:
		return "", NewValidationError("fileId or path")
	}
}

// HandleCancelLoad cancels the running load
func (h *LoadHandlerImpl) HandleCancelLoad(c echo.Context) error {
	cancelled := h.loader.Cancel()
	state := h.loader.State()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"cancelled": cancelled,
		"loadId":    state.ID,
	})
}

// HandleLoadStatus returns the status of the current load
func (h *LoadHandlerImpl) HandleLoadStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, h.loader.State())
}

// HandleLoadProgressStream streams load status via SSE until the load ends.
// With ?loadId= the stream stops if that load is superseded.
func (h *LoadHandlerImpl) HandleLoadProgressStream(c echo.Context) error {
	wantID := c.QueryParam("loadId")

	// Set SSE headers
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	timeout := time.NewTimer(progressTimeout)
	defer timeout.Stop()

	ctx := c.Request().Context()
	for {
		state := h.loader.State()
		if wantID != "" && state.ID != wantID {
			h.sendSSEError(c, "load superseded")
			return nil
		}

		h.sendSSEData(c, progressEvent(state))
		// Nothing more will happen until another load starts.
		if state.Status.Terminal() || state.Status == models.LoadStatusIdle {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		case <-timeout.C:
			h.sendSSEError(c, "stream timeout")
			return nil
		}
	}
}

// progressEvent drops the skipped-line details, which /api/load/status serves.
func progressEvent(state models.LoadState) models.LoadState {
	state.Errors = nil
	return state
}

func (h *LoadHandlerImpl) sendSSEData(c echo.Context, data interface{}) {
	jsonData, _ := json.Marshal(data)
	fmt.Fprintf(c.Response(), "data: %s\n\n", jsonData)
	c.Response().Flush()
}

func (h *LoadHandlerImpl) sendSSEError(c echo.Context, message string) {
	h.sendSSEData(c, map[string]string{"error": message})
}
