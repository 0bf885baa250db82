package utils

import "time"

// LocalTimeLayout matches the ja-JP locale string stored in the jst column.
const LocalTimeLayout = "2006/1/2 15:04:05"

func FormatLocal(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(LocalTimeLayout)
}

// ParseTimestamp reads the timestamp column, falling back to the jst column.
func ParseTimestamp(timestamp, local string, loc *time.Location) (time.Time, bool) {
	if timestamp != "" {
		if t, err := time.Parse(time.RFC3339Nano, timestamp); err == nil {
			return t, true
		}
	}
	if local != "" {
		if t, err := time.ParseInLocation(LocalTimeLayout, local, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
