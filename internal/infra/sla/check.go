package sla

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"arbiter/internal/domain"
)

// DefaultThreshold is the downtime at which an outage counts as an SLA breach.
const DefaultThreshold = 4 * time.Hour

// maxMinutes is the largest per-row value a time.Duration can hold.
const maxMinutes = float64(math.MaxInt64 / int64(time.Minute))

type Outage struct {
	Line     int
	Duration time.Duration
}

type Report struct {
	Outages   []Outage      `json:"outages"`
	Downtime  time.Duration `json:"downtime"`
	Threshold time.Duration `json:"threshold"`
	Breached  bool          `json:"breached"`
}

// Summary renders the report the way the operator log shows it.
func (r Report) Summary() string {
	verdict := "within SLA"
	if r.Breached {
		verdict = "SLA breached"
	}
	return fmt.Sprintf("Downtime %s over %d outage(s), threshold %s: %s", formatDuration(r.Downtime), len(r.Outages), formatDuration(r.Threshold), verdict)
}

type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Check reads an outage CSV and compares total downtime against threshold; reaching the
// threshold is a breach. The header must name either a "minutes" column or "start" and
// "end" columns holding RFC 3339 timestamps.
func Check(r io.Reader, threshold time.Duration) (Report, error) {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return Report{}, fmt.Errorf("%w: empty outage report", domain.ErrInvalidArgument)
	}
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}
	cols := columnIndex(header)
	minutesCol, hasMinutes := cols["minutes"]
	startCol, hasStart := cols["start"]
	endCol, hasEnd := cols["end"]
	if !hasMinutes && !(hasStart && hasEnd) {
		return Report{}, fmt.Errorf("%w: header needs a minutes column or start and end columns", domain.ErrInvalidArgument)
	}

	report := Report{Threshold: threshold}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			return Report{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, &RowError{Line: line, Err: err})
		}
		line, _ := reader.FieldPos(0)
		if blank(record) {
			continue
		}
		var d time.Duration
		if hasMinutes {
			d, err = parseMinutes(field(record, minutesCol))
		} else {
			d, err = parseSpan(field(record, startCol), field(record, endCol))
		}
		if err != nil {
			return Report{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, &RowError{Line: line, Err: err})
		}
		if d > math.MaxInt64-report.Downtime {
			return Report{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, &RowError{Line: line, Err: errors.New("total downtime overflows")})
		}
		report.Outages = append(report.Outages, Outage{Line: line, Duration: d})
		report.Downtime += d
	}
	report.Breached = report.Downtime >= threshold
	return report, nil
}

func columnIndex(header []string) map[string]int {
	out := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := out[key]; !dup {
			out[key] = i
		}
	}
	return out
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseMinutes(value string) (time.Duration, error) {
	if value == "" {
		return 0, errors.New("minutes is empty")
	}
	m, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("minutes %q is not a number", value)
	}
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, fmt.Errorf("minutes %q is not finite", value)
	}
	if m < 0 {
		return 0, fmt.Errorf("minutes %q is negative", value)
	}
	if m > maxMinutes {
		return 0, fmt.Errorf("minutes %q is too large", value)
	}
	return time.Duration(m * float64(time.Minute)), nil
}

func parseSpan(startValue, endValue string) (time.Duration, error) {
	start, err := time.Parse(time.RFC3339, startValue)
	if err != nil {
		return 0, fmt.Errorf("start %q is not RFC 3339", startValue)
	}
	end, err := time.Parse(time.RFC3339, endValue)
	if err != nil {
		return 0, fmt.Errorf("end %q is not RFC 3339", endValue)
	}
	if end.Before(start) {
		return 0, errors.New("end is before start")
	}
	return end.Sub(start), nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	return fmt.Sprintf("%dh%02dm", h, m)
}
