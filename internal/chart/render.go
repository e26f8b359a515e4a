// Package chart renders a series snapshot as a PNG line chart.
package chart

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sunpath-tracker/backend/internal/models"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 480
	MaxWidth      = 4096
	MaxHeight     = 4096
)

var gridGray = drawing.Color{R: 80, G: 80, B: 80, A: 255}

// ErrNoData is returned when there is nothing to plot.
var ErrNoData = errors.New("chart: no data points")

// Options controls the rendered image.
type Options struct {
	Style  models.ChartStyle
	Width  int
	Height int
}

// DefaultOptions uses the default style at the default size.
func DefaultOptions() Options {
	return Options{Style: models.DefaultChartStyle(), Width: DefaultWidth, Height: DefaultHeight}
}

func (o Options) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	if w > MaxWidth {
		w = MaxWidth
	}
	if h > MaxHeight {
		h = MaxHeight
	}
	return w, h
}

// Render draws points as one time series and writes the PNG to w.
func Render(w io.Writer, name string, points []models.DataPoint, opts Options) error {
	if len(points) == 0 {
		return ErrNoData
	}
	if err := opts.Style.Validate(); err != nil {
		return err
	}

	times := make([]time.Time, len(points))
	values := make([]float64, len(points))
	minY, maxY := points[0].Value, points[0].Value
	minT, maxT := points[0].TimestampMillis, points[0].TimestampMillis
	for i, p := range points {
		times[i] = p.Time()
		values[i] = p.Value
		minY = min(minY, p.Value)
		maxY = max(maxY, p.Value)
		minT = min(minT, p.TimestampMillis)
		maxT = max(maxT, p.TimestampMillis)
	}
	// go-chart refuses a zero-width x range; widen it by one second.
	if minT == maxT {
		times = append(times, times[0].Add(time.Second))
		values = append(values, values[len(values)-1])
	}

	fg := hexColor(opts.Style.SeriesColor)
	bg := hexColor(opts.Style.BackgroundColor)
	axisStyle := gochart.Style{FontColor: drawing.ColorWhite, StrokeColor: drawing.ColorWhite}
	gridStyle := gochart.Style{StrokeColor: gridGray, StrokeWidth: 1}

	// Leave Range as a nil interface unless it is needed; go-chart calls
	// IsZero on any non-nil value.
	var yRange gochart.Range
	if minY == maxY {
		yRange = &gochart.ContinuousRange{Min: minY - 1, Max: maxY + 1}
	}

	width, height := opts.size()
	ch := gochart.Chart{
		Title:      opts.Style.Title,
		TitleStyle: gochart.Style{FontColor: drawing.ColorWhite},
		Width:      width,
		Height:     height,
		Background: gochart.Style{
			FillColor: bg,
			Padding:   gochart.Box{Top: 48, Left: 16, Right: 16, Bottom: 16},
		},
		Canvas: gochart.Style{FillColor: bg},
		XAxis: gochart.XAxis{
			Name:           "Time",
			NameStyle:      axisStyle,
			Style:          axisStyle,
			GridMajorStyle: gridStyle,
			ValueFormatter: gochart.TimeValueFormatterWithFormat("15:04"),
		},
		YAxis: gochart.YAxis{
			Name:           "Intensity",
			NameStyle:      axisStyle,
			Style:          axisStyle,
			GridMajorStyle: gridStyle,
			Range:          yRange,
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name:    name,
				XValues: times,
				YValues: values,
				Style: gochart.Style{
					StrokeColor: fg,
					StrokeWidth: 2,
					DotColor:    fg,
					DotWidth:    3,
				},
			},
		},
	}
	if opts.Style.LegendVisible {
		ch.Elements = []gochart.Renderable{gochart.Legend(&ch)}
	}

	if err := ch.Render(gochart.PNG, w); err != nil {
		return fmt.Errorf("rendering chart: %w", err)
	}
	return nil
}

func hexColor(s string) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
}
