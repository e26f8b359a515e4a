// handlers_config.go - Playback and chart settings handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sunpath-tracker/backend/internal/models"
	"github.com/sunpath-tracker/backend/internal/playback"
	"go.uber.org/zap"
)

// ConfigHandlerImpl implements the ConfigHandler interface
type ConfigHandlerImpl struct {
	settings *playback.Settings
	log      *zap.Logger
}

// NewConfigHandler creates a new settings handler
func NewConfigHandler(settings *playback.Settings, log *zap.Logger) ConfigHandler {
	return &ConfigHandlerImpl{settings: settings, log: log}
}

// updatePlaybackRequest allows partial updates; omitted fields keep their value.
type updatePlaybackRequest struct {
	DelayMillis       *int  `json:"delayMillis"`
	AnimationsEnabled *bool `json:"animationsEnabled"`
}

// HandleGetPlayback returns the playback settings the next load will use
func (h *ConfigHandlerImpl) HandleGetPlayback(c echo.Context) error {
	return c.JSON(http.StatusOK, h.settings.Playback())
}

// HandleUpdatePlayback changes the playback settings. The delay is clamped to
// [0, 5000]; a running load keeps the settings it started with.
func (h *ConfigHandlerImpl) HandleUpdatePlayback(c echo.Context) error {
	var req updatePlaybackRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.DelayMillis == nil && req.AnimationsEnabled == nil {
		return NewValidationError("delayMillis or animationsEnabled")
	}

	// Each field is set on its own so concurrent partial updates don't clobber each other.
	var stored models.PlaybackConfig
	if req.DelayMillis != nil {
		stored = h.settings.SetDelay(*req.DelayMillis)
	}
	if req.AnimationsEnabled != nil {
		stored = h.settings.SetAnimationsEnabled(*req.AnimationsEnabled)
	}

	h.log.Info("playback settings updated",
		zap.Int("delayMs", stored.DelayMillis),
		zap.Bool("animations", stored.AnimationsEnabled),
	)
	return c.JSON(http.StatusOK, stored)
}

// HandleGetChartStyle returns the chart style
func (h *ConfigHandlerImpl) HandleGetChartStyle(c echo.Context) error {
	return c.JSON(http.StatusOK, h.settings.Style())
}

// HandleUpdateChartStyle replaces the chart style
func (h *ConfigHandlerImpl) HandleUpdateChartStyle(c echo.Context) error {
	var style models.ChartStyle
	if err := c.Bind(&style); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if err := h.settings.SetStyle(style); err != nil {
		return NewBadRequestError("invalid chart style", err)
	}
	return c.JSON(http.StatusOK, h.settings.Style())
}
