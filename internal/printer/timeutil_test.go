package printer_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ringside-dev/ringside/internal/printer"
)

func TestFormatTimestamp(t *testing.T) {
	tests := map[string]struct {
		time     time.Time
		expected string
	}{
		"standard timestamp": {
			time:     time.Date(2026, 1, 30, 10, 15, 30, 0, time.UTC),
			expected: "2026-01-30 10:15:30 UTC",
		},
		"timestamp with different timezone gets converted to UTC": {
			time:     time.Date(2026, 1, 30, 10, 15, 30, 0, time.FixedZone("EST", -5*3600)),
			expected: "2026-01-30 15:15:30 UTC",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			result := printer.FormatTimestamp(test.time)
			assert.Equal(test.expected, result)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := map[string]struct {
		duration time.Duration
		expected string
	}{
		"seconds": {
			duration: 5 * time.Second,
			expected: "5s",
		},
		"minutes and seconds": {
			duration: 90 * time.Second,
			expected: "1m30s",
		},
		"sub-second precision gets truncated": {
			duration: 5*time.Second + 350*time.Millisecond,
			expected: "5s",
		},
		"hours": {
			duration: 2*time.Hour + 3*time.Minute,
			expected: "2h3m0s",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			result := printer.FormatDuration(test.duration)
			assert.Equal(test.expected, result)
		})
	}
}
