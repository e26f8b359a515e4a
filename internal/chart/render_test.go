package chart

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sunpath-tracker/backend/internal/models"
)

func sunPoints(n int) []models.DataPoint {
	base := time.Date(2024, 6, 21, 5, 0, 0, 0, time.UTC)
	points := make([]models.DataPoint, n)
	for i := range points {
		points[i] = models.NewDataPoint(base.Add(time.Duration(i)*time.Hour), float64(i*100))
	}
	return points
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Width, opts.Height = 640, 320

	require.NoError(t, Render(&buf, models.DefaultSeriesName, sunPoints(12), opts))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 640, img.Bounds().Dx())
	assert.Equal(t, 320, img.Bounds().Dy())
}

func TestRender_SinglePoint(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, models.DefaultSeriesName, sunPoints(1), DefaultOptions())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestRender_NoLegend(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Style.LegendVisible = false
	require.NoError(t, Render(&buf, "x", sunPoints(3), opts))
	assert.NotZero(t, buf.Len())
}

func TestRender_Errors(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, Render(&buf, "x", nil, DefaultOptions()), ErrNoData)

	opts := DefaultOptions()
	opts.Style.SeriesColor = "cyan"
	assert.Error(t, Render(&buf, "x", sunPoints(3), opts))
	assert.Zero(t, buf.Len())
}

func TestOptionsSize(t *testing.T) {
	w, h := Options{}.size()
	assert.Equal(t, DefaultWidth, w)
	assert.Equal(t, DefaultHeight, h)

	w, h = Options{Width: 10000, Height: 10000}.size()
	assert.Equal(t, MaxWidth, w)
	assert.Equal(t, MaxHeight, h)
}

func TestRender_VaryingValues(t *testing.T) {
	points := []models.DataPoint{
		models.NewDataPoint(time.Date(2024, 6, 21, 6, 0, 0, 0, time.UTC), 12.5),
		models.NewDataPoint(time.Date(2024, 6, 21, 7, 0, 0, 0, time.UTC), 340.25),
		models.NewDataPoint(time.Date(2024, 6, 21, 8, 0, 0, 0, time.UTC), 80),
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, models.DefaultSeriesName, points, DefaultOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestRender_FlatValues(t *testing.T) {
	points := sunPoints(4)
	for i := range points {
		points[i].Value = 42
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, models.DefaultSeriesName, points, DefaultOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestRender_SameTimestamp(t *testing.T) {
	at := time.Date(2024, 6, 21, 5, 0, 0, 0, time.UTC)
	points := []models.DataPoint{
		models.NewDataPoint(at, 10),
		models.NewDataPoint(at, 20),
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, models.DefaultSeriesName, points, DefaultOptions()))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}
