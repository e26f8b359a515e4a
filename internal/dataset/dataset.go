// Package dataset holds the in-memory series the chart renders.
package dataset

import (
	"sync"
	"time"

	"github.com/sunpath-tracker/backend/internal/models"
)

// Series is an ordered, append-only sequence of points with one writer and any
// number of snapshot readers.
//
// Snapshots share the backing array with the series. That is safe because the
// writer only ever writes at or beyond the current length, and Clear/ReplaceAll
// swap in a new array instead of reusing the old one.
type Series struct {
	mu      sync.RWMutex
	name    string
	points  []models.DataPoint
	version uint64
}

// NewSeries creates an empty series.
func NewSeries(name string) *Series {
	return &Series{name: name}
}

// Name returns the series name.
func (s *Series) Name() string {
	return s.name
}

// ReplaceAll discards the current content and installs a copy of points.
func (s *Series) ReplaceAll(points []models.DataPoint) {
	fresh := make([]models.DataPoint, len(points))
	copy(fresh, points)

	s.mu.Lock()
	s.points = fresh
	s.version++
	s.mu.Unlock()
}

// Append adds one point at the end and returns its index.
func (s *Series) Append(p models.DataPoint) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.points = append(s.points, p)
	s.version++
	return len(s.points) - 1
}

// Clear empties the series.
func (s *Series) Clear() {
	s.mu.Lock()
	s.points = nil
	s.version++
	s.mu.Unlock()
}

// Len returns the number of points.
func (s *Series) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

// Version increases on every mutation.
func (s *Series) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the current points. Callers must not modify the slice.
func (s *Series) Snapshot() []models.DataPoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view()
}

func (s *Series) view() []models.DataPoint {
	if len(s.points) == 0 {
		return []models.DataPoint{}
	}
	return s.points[:len(s.points):len(s.points)]
}

// Since returns the points with index >= n, for incremental rendering.
func (s *Series) Since(n int) []models.DataPoint {
	return s.Payload().Since(n)
}

// Bounds describes the extents of a series.
type Bounds struct {
	Count     int               `json:"count"`
	TimeRange *models.TimeRange `json:"timeRange,omitempty"`
	MinValue  float64           `json:"minValue"`
	MaxValue  float64           `json:"maxValue"`
}

// Bounds scans the series for its time and value extents.
func (s *Series) Bounds() Bounds {
	return BoundsOf(s.Snapshot())
}

// BoundsOf computes the extents of points. Points are kept in insertion order,
// so the time range is computed rather than taken from the ends.
func BoundsOf(points []models.DataPoint) Bounds {
	b := Bounds{Count: len(points)}
	if len(points) == 0 {
		return b
	}

	minTs, maxTs := points[0].TimestampMillis, points[0].TimestampMillis
	b.MinValue, b.MaxValue = points[0].Value, points[0].Value
	for _, p := range points[1:] {
		if p.TimestampMillis < minTs {
			minTs = p.TimestampMillis
		}
		if p.TimestampMillis > maxTs {
			maxTs = p.TimestampMillis
		}
		if p.Value < b.MinValue {
			b.MinValue = p.Value
		}
		if p.Value > b.MaxValue {
			b.MaxValue = p.Value
		}
	}
	b.TimeRange = &models.TimeRange{
		Start: time.UnixMilli(minTs).UTC(),
		End:   time.UnixMilli(maxTs).UTC(),
	}
	return b
}

// Dataset is the ordered collection of series shown on the chart. The tracker
// uses exactly one, named models.DefaultSeriesName.
type Dataset struct {
	series []*Series
}

// New creates a dataset with the default light-intensity series.
func New() *Dataset {
	return &Dataset{series: []*Series{NewSeries(models.DefaultSeriesName)}}
}

// Primary returns the light-intensity series.
func (d *Dataset) Primary() *Series {
	return d.series[0]
}
