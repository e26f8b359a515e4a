package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/sunpath-tracker/backend/internal/models"
)

// maxLineBytes bounds a single line; longer lines end the scan with bufio.ErrTooLong.
const maxLineBytes = 1024 * 1024

// Record is the outcome of one data line.
type Record struct {
	Line  int
	Text  string
	Point models.DataPoint
	Err   *models.ParseError
}

// RecordScanner streams records from a reader. The first line is the header and is
// never parsed; blank lines are skipped.
type RecordScanner struct {
	scanner  *bufio.Scanner
	lineNum  int
	attempts int
	rec      Record
}

// NewRecordScanner wraps r.
func NewRecordScanner(r io.Reader) *RecordScanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &RecordScanner{scanner: sc}
}

// Next advances to the next data line. It returns false at EOF or on a read error.
func (s *RecordScanner) Next() bool {
	for s.scanner.Scan() {
		s.lineNum++
		if s.lineNum == 1 {
			continue // header
		}
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		s.attempts++
		point, perr := ParseRecord(line, s.lineNum)
		s.rec = Record{Line: s.lineNum, Text: line, Point: point, Err: perr}
		return true
	}
	return false
}

// Record returns the record produced by the last call to Next.
func (s *RecordScanner) Record() Record {
	return s.rec
}

// Err returns the first read error, if any. EOF is not an error.
func (s *RecordScanner) Err() error {
	return s.scanner.Err()
}

// Attempts is the number of lines handed to ParseRecord so far.
func (s *RecordScanner) Attempts() int {
	return s.attempts
}

// ParseReader reads every record from r.
func ParseReader(r io.Reader) ([]models.DataPoint, []*models.ParseError, error) {
	points := make([]models.DataPoint, 0)
	errors := make([]*models.ParseError, 0)

	sc := NewRecordScanner(r)
	for sc.Next() {
		rec := sc.Record()
		if rec.Err != nil {
			errors = append(errors, rec.Err)
			continue
		}
		points = append(points, rec.Point)
	}
	if err := sc.Err(); err != nil {
		return points, errors, err
	}
	return points, errors, nil
}

// ParseFile parses the whole file at filePath.
func ParseFile(filePath string) ([]models.DataPoint, []*models.ParseError, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	return ParseReader(file)
}
