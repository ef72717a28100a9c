package printer

import "time"

// FormatTimestamp returns a formatted timestamp string in UTC.
// Format: "2006-01-02 15:04:05 UTC".
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// FormatDuration returns a duration truncated to whole seconds.
// Examples: "5s", "1m30s", "2h3m0s".
func FormatDuration(d time.Duration) string {
	return d.Truncate(time.Second).String()
}
