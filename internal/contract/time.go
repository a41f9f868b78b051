package contract

import (
	"fmt"
	"strings"
	"time"

	"github.com/markusmobius/go-dateparser"
)

// absoluteLayouts are tried before natural language parsing.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimeInput parses an absolute ISO8601 timestamp or a natural language phrase
// such as "2 weeks ago" or "yesterday" relative to now.
func ParseTimeInput(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}

	cfg := &dateparser.Configuration{
		CurrentTime:     now,
		DefaultTimezone: now.Location(),
	}
	dt, err := dateparser.Parse(cfg, s)
	if err != nil {
		return time.Time{}, err
	}
	if dt.Time.IsZero() {
		return time.Time{}, fmt.Errorf("no date found in %q", s)
	}
	return dt.Time, nil
}

// WindowStart returns now minus the given number of days, or minus fallback days
// when days is not positive.
func WindowStart(now time.Time, days, fallback int) time.Time {
	if days <= 0 {
		days = fallback
	}
	return now.AddDate(0, 0, -days)
}
