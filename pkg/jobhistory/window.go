package jobhistory

import (
	"time"
)

// ParseStarted parses a build's start timestamp as the dashboard emits it
// (RFC3339 with a UTC offset). The second return is false for absent or
// unparseable values, which callers treat as "start time unknown".
func ParseStarted(started string) (time.Time, bool) {
	if started == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, started)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// WithinWindow reports whether a build started inside the trailing window of
// hoursBack hours ending at now. The lower bound is inclusive; builds with an
// unknown start time never match. Callers capture now once per report and
// reuse it for every record so a slow batch cannot skew the window.
func WithinWindow(started string, hoursBack int, now time.Time) bool {
	t, ok := ParseStarted(started)
	if !ok {
		return false
	}
	cutoff := now.Add(-time.Duration(hoursBack) * time.Hour)
	return !t.Before(cutoff)
}
