package parser

import (
	"fmt"
	"time"
)

// TimestampLayout is the only accepted date-time format, always read as UTC.
const TimestampLayout = "2006-01-02 15:04:05"

// FastTimestamp parses "yyyy-MM-dd HH:mm:ss" (UTC) without going through time.Parse.
// Dates that would be normalized by time.Date (e.g. 2024-02-30) are rejected.
func FastTimestamp(ts string) (time.Time, error) {
	if len(ts) != len(TimestampLayout) {
		return time.Time{}, fmt.Errorf("timestamp %q: want layout %q", ts, TimestampLayout)
	}
	if ts[4] != '-' || ts[7] != '-' || ts[10] != ' ' || ts[13] != ':' || ts[16] != ':' {
		return time.Time{}, fmt.Errorf("timestamp %q: bad separators", ts)
	}

	year := parseInt4(ts[0:4])
	month := parseInt2(ts[5:7])
	day := parseInt2(ts[8:10])
	hour := parseInt2(ts[11:13])
	min := parseInt2(ts[14:16])
	sec := parseInt2(ts[17:19])

	if year < 0 || month < 1 || month > 12 || day < 1 || day > 31 ||
		hour < 0 || hour > 23 || min < 0 || min > 59 || sec < 0 || sec > 59 {
		return time.Time{}, fmt.Errorf("timestamp %q: field out of range", ts)
	}

	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("timestamp %q: no such day", ts)
	}
	return t, nil
}

// parseInt2 parses a 2-digit decimal string. Returns -1 on error.
func parseInt2(s string) int {
	if len(s) != 2 {
		return -1
	}
	d1, d2 := s[0]-'0', s[1]-'0'
	if d1 > 9 || d2 > 9 {
		return -1
	}
	return int(d1)*10 + int(d2)
}

// parseInt4 parses a 4-digit decimal string. Returns -1 on error.
func parseInt4(s string) int {
	if len(s) != 4 {
		return -1
	}
	d1, d2, d3, d4 := s[0]-'0', s[1]-'0', s[2]-'0', s[3]-'0'
	if d1 > 9 || d2 > 9 || d3 > 9 || d4 > 9 {
		return -1
	}
	return int(d1)*1000 + int(d2)*100 + int(d3)*10 + int(d4)
}
