// Package burnrate computes SLO error burn rates from plain log files.
package burnrate

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultSLOTarget is the error budget for a 99.9% reliability target.
const DefaultSLOTarget = 0.001

// Report summarizes one pass over a log stream.
type Report struct {
	Total     int
	Errors    int
	ErrorRate float64
	BurnRate  float64
}

// Calculate scans r line by line and reports the burn rate against
// sloTarget. A line counts as an error when it contains "500" or "ERROR".
// An empty stream yields a zero report.
func Calculate(r io.Reader, sloTarget float64) (Report, error) {
	if sloTarget <= 0 {
		return Report{}, fmt.Errorf("slo target must be > 0, got %v", sloTarget)
	}

	var rep Report
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		rep.Total++
		line := scanner.Text()
		if strings.Contains(line, "500") || strings.Contains(line, "ERROR") {
			rep.Errors++
		}
	}
	if err := scanner.Err(); err != nil {
		return Report{}, fmt.Errorf("scan log: %w", err)
	}

	if rep.Total == 0 {
		return rep, nil
	}
	rep.ErrorRate = float64(rep.Errors) / float64(rep.Total)
	rep.BurnRate = rep.ErrorRate / sloTarget
	return rep, nil
}
