package config

import (
	"fmt"
	"time"
)

// DateLayouts are the accepted --start/--end formats, tried in order.
var DateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseDate parses a date in one of DateLayouts as local time.
func ParseDate(value string) (time.Time, error) {
	for _, layout := range DateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("value %q cannot be parsed as a date (expected YYYY-MM-DDTHH:MM:SS or YYYY-MM-DD)", value)
}
