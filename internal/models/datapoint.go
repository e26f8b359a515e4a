// Package models contains domain types for the Sun Path Tracker.
package models

import (
	"fmt"
	"time"
)

// DefaultSeriesName is the name of the single series the tracker renders.
const DefaultSeriesName = "Light Intensity"

// DataPoint is one light-intensity reading.
type DataPoint struct {
	TimestampMillis int64   `json:"t" msgpack:"t"` // Unix ms, UTC
	Value           float64 `json:"v" msgpack:"v"`
}

// NewDataPoint builds a DataPoint from a time and a value.
func NewDataPoint(ts time.Time, value float64) DataPoint {
	return DataPoint{TimestampMillis: ts.UnixMilli(), Value: value}
}

// Time returns the point's timestamp in UTC.
func (p DataPoint) Time() time.Time {
	return time.UnixMilli(p.TimestampMillis).UTC()
}

// FailureKind classifies why a line or a load failed.
type FailureKind string

const (
	FailureMalformedRow FailureKind = "malformed_row"
	FailureBadTimestamp FailureKind = "bad_timestamp"
	FailureBadValue     FailureKind = "bad_value"
	FailureIO           FailureKind = "io_error"
)

// ParseError represents a line that could not be turned into a DataPoint.
type ParseError struct {
	Line    int         `json:"line"`
	Content string      `json:"content"`
	Kind    FailureKind `json:"kind"`
	Reason  string      `json:"reason"`
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Kind, e.Reason)
}

// TimeRange represents a time window.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
