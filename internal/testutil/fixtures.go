package testutil

import (
	"fmt"
	"strings"
	"time"
)

// SunPathHeader is the header line of a sun path file.
const SunPathHeader = "timestamp,intensity"

// SunPathCSV builds a file with n hourly readings starting at 05:00 UTC on
// the June solstice. Reading i has intensity i*100.
func SunPathCSV(n int) string {
	var b strings.Builder
	b.WriteString(SunPathHeader + "\n")
	base := time.Date(2024, 6, 21, 5, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "%s,%d\n", base.Add(time.Duration(i)*time.Hour).Format("2006-01-02 15:04:05"), i*100)
	}
	return b.String()
}
