package gtfs

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DepartureMinutes converts a GTFS clock string (HH:MM:SS) to minutes
// since midnight of the service day. Hours are deliberately not wrapped
// modulo 24: a trip coded "25:10:00" yields 1510 so post-midnight service
// sorts after every same-day departure. The seconds component does not
// affect ordering and is ignored.
func DepartureMinutes(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("malformed gtfs time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("malformed gtfs time %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("malformed gtfs time %q: %w", s, err)
	}
	if h < 0 || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed gtfs time %q", s)
	}
	return h*60 + m, nil
}

// DateKey returns the local civil date of t in GTFS calendar_dates form,
// an integer like 20260215.
func DateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
