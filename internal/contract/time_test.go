package contract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeInput(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    string
		expected time.Time
	}{
		{"rfc3339", "2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
		{"rfc3339 offset", "2024-01-02T03:04:05+02:00", time.Date(2024, 1, 2, 1, 4, 5, 0, time.UTC)},
		{"date only", "2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		{"space separated", "2024-01-02 10:30:00", time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC)},
		{"days ago", "3 days ago", time.Date(2024, 6, 12, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimeInput(tt.input, now)
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestParseTimeInputRelative(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	got, err := ParseTimeInput("2 weeks ago", now)
	require.NoError(t, err)
	assert.Equal(t, 2024, got.Year())
	assert.Equal(t, time.June, got.Month())
	assert.Equal(t, 1, got.Day())
}

func TestParseTimeInputInvalid(t *testing.T) {
	now := time.Now()
	for _, input := range []string{"", "   ", "not a date at all xyz"} {
		_, err := ParseTimeInput(input, now)
		assert.Error(t, err, input)
	}
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.AddDate(0, 0, -7), WindowStart(now, 7, 30))
	assert.Equal(t, now.AddDate(0, 0, -30), WindowStart(now, 0, 30))
	assert.Equal(t, now.AddDate(0, 0, -30), WindowStart(now, -4, 30))
}
