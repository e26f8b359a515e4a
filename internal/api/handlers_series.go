// handlers_series.go - Series and chart handlers
package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sunpath-tracker/backend/internal/chart"
	"github.com/sunpath-tracker/backend/internal/dataset"
	"github.com/sunpath-tracker/backend/internal/models"
	"github.com/sunpath-tracker/backend/internal/playback"
)

// SeriesHandlerImpl implements the SeriesHandler interface
type SeriesHandlerImpl struct {
	series   *dataset.Series
	settings *playback.Settings
	width    int
	height   int
}

// NewSeriesHandler creates a new series handler. width and height are the
// default chart size.
func NewSeriesHandler(series *dataset.Series, settings *playback.Settings, width, height int) SeriesHandler {
	return &SeriesHandlerImpl{series: series, settings: settings, width: width, height: height}
}

type seriesResponse struct {
	Name    string             `json:"name"`
	Version uint64             `json:"version"`
	Since   int                `json:"since"`
	Points  []models.DataPoint `json:"points"`
	Bounds  dataset.Bounds     `json:"bounds"`
}

// HandleGetSeries returns the series as JSON. ?since=n returns only points
// from index n on, for clients polling an in-flight load.
func (h *SeriesHandlerImpl) HandleGetSeries(c echo.Context) error {
	since := 0
	if raw := c.QueryParam("since"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return NewValidationError("since")
		}
		since = n
	}

	// One capture so points, version and bounds describe the same moment.
	payload := h.series.Payload()
	return c.JSON(http.StatusOK, seriesResponse{
		Name:    payload.Name,
		Version: payload.Version,
		Since:   since,
		Points:  payload.Since(since),
		Bounds:  payload.Bounds(),
	})
}

// HandleGetSeriesMsgpack returns the series snapshot in MessagePack format
func (h *SeriesHandlerImpl) HandleGetSeriesMsgpack(c echo.Context) error {
	var buf bytes.Buffer
	if err := h.series.EncodeMsgpack(&buf); err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}

// HandleGetChart renders the series as a PNG using the current chart style
func (h *SeriesHandlerImpl) HandleGetChart(c echo.Context) error {
	opts := chart.Options{
		Style:  h.settings.Style(),
		Width:  h.width,
		Height: h.height,
	}
	if raw := c.QueryParam("width"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return NewValidationError("width")
		}
		opts.Width = n
	}
	if raw := c.QueryParam("height"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return NewValidationError("height")
		}
		opts.Height = n
	}

	var buf bytes.Buffer
	err := chart.Render(&buf, h.series.Name(), h.series.Snapshot(), opts)
	if errors.Is(err, chart.ErrNoData) {
		return NewNotFoundError("series data", h.series.Name())
	}
	if err != nil {
		return NewInternalError("failed to render chart", err)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", buf.Bytes())
}
