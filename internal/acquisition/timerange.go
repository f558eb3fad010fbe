package acquisition

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TimeRange is a clip window inside the source media.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// MaxTimestamp bounds either side of a time range.
const MaxTimestamp = 100 * time.Hour

// ParseTimeRange parses "HH:MM:SS-HH:MM:SS". MM:SS and plain seconds are
// accepted on either side. An empty string yields nil.
func ParseTimeRange(s string) (*TimeRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	startStr, endStr, ok := strings.Cut(s, "-")
	if !ok {
		return nil, fmt.Errorf("invalid time range %q: want start-end", s)
	}
	start, err := parseClock(startStr)
	if err != nil {
		return nil, fmt.Errorf("invalid time range start: %w", err)
	}
	end, err := parseClock(endStr)
	if err != nil {
		return nil, fmt.Errorf("invalid time range end: %w", err)
	}
	if end <= start {
		return nil, fmt.Errorf("invalid time range %q: end must be after start", s)
	}
	return &TimeRange{Start: start, End: end}, nil
}

func (t *TimeRange) Duration() time.Duration { return t.End - t.Start }

func (t *TimeRange) StartArg() string { return formatClock(t.Start) }

func (t *TimeRange) EndArg() string { return formatClock(t.End) }

func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if s == "" || len(parts) > 3 {
		return 0, fmt.Errorf("bad timestamp %q", s)
	}

	var total float64
	for i, part := range parts {
		last := i == len(parts)-1
		var v float64
		var err error
		if last {
			v, err = strconv.ParseFloat(part, 64)
		} else {
			var n int
			n, err = strconv.Atoi(part)
			v = float64(n)
		}
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return 0, fmt.Errorf("bad timestamp %q", s)
		}
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("bad timestamp %q", s)
		}
		total = total*60 + v
		if total > MaxTimestamp.Seconds() {
			return 0, fmt.Errorf("timestamp %q exceeds %s", s, MaxTimestamp)
		}
	}
	return time.Duration(total * float64(time.Second)), nil
}

func formatClock(d time.Duration) string {
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	sec := ms / 1000 % 60
	frac := ms % 1000
	if frac == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, sec, frac)
}
