// Package parser turns sun-path CSV lines into data points.
//
// Format: one header line (ignored) followed by "yyyy-MM-dd HH:mm:ss,<float>" lines in UTC.
package parser

import (
	"math"
	"strconv"
	"strings"

	"github.com/sunpath-tracker/backend/internal/models"
)

const (
	// FieldSeparator splits a line into columns. No quoting or escaping.
	FieldSeparator = ","
	// ExpectedFields is the column count of the fixed layout: timestamp,value.
	ExpectedFields = 2
)

// ParseRecord parses one data line. It never panics; a nil error means the point is valid.
func ParseRecord(line string, lineNum int) (models.DataPoint, *models.ParseError) {
	parts := strings.Split(line, FieldSeparator)
	if len(parts) < ExpectedFields {
		return models.DataPoint{}, &models.ParseError{
			Line:    lineNum,
			Content: line,
			Kind:    models.FailureMalformedRow,
			Reason:  "expected " + strconv.Itoa(ExpectedFields) + " fields, got " + strconv.Itoa(len(parts)),
		}
	}

	ts, err := FastTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return models.DataPoint{}, &models.ParseError{
			Line:    lineNum,
			Content: line,
			Kind:    models.FailureBadTimestamp,
			Reason:  err.Error(),
		}
	}

	valueStr := strings.TrimSpace(parts[1])
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return models.DataPoint{}, &models.ParseError{
			Line:    lineNum,
			Content: line,
			Kind:    models.FailureBadValue,
			Reason:  "invalid number " + strconv.Quote(valueStr),
		}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return models.DataPoint{}, &models.ParseError{
			Line:    lineNum,
			Content: line,
			Kind:    models.FailureBadValue,
			Reason:  "value is not finite",
		}
	}

	return models.NewDataPoint(ts, value), nil
}
