// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
	"github.com/sunpath-tracker/backend/internal/loader"
	"github.com/sunpath-tracker/backend/internal/models"
)

// FileHandler handles uploaded input files
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
	HandleDeleteFile(c echo.Context) error
}

// LoadHandler starts, cancels and reports on loads
type LoadHandler interface {
	HandleStartLoad(c echo.Context) error
	HandleCancelLoad(c echo.Context) error
	HandleLoadStatus(c echo.Context) error
	HandleLoadProgressStream(c echo.Context) error
}

// SeriesHandler serves the loaded series
type SeriesHandler interface {
	HandleGetSeries(c echo.Context) error
	HandleGetSeriesMsgpack(c echo.Context) error
	HandleGetChart(c echo.Context) error
}

// ConfigHandler reads and updates playback and chart settings
type ConfigHandler interface {
	HandleGetPlayback(c echo.Context) error
	HandleUpdatePlayback(c echo.Context) error
	HandleGetChartStyle(c echo.Context) error
	HandleUpdateChartStyle(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// LoadController defines the loader operations the API uses.
// This allows mocking in tests
type LoadController interface {
	Load(path string, cfg models.PlaybackConfig, onProgress loader.ProgressFunc, onDone loader.DoneFunc) string
	Cancel() bool
	State() models.LoadState
}

// Ensure the real loader satisfies LoadController
var _ LoadController = (*loader.Loader)(nil)
