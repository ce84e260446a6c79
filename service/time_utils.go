package service

import (
	"time"
)

// DayBounds returns the UTC calendar day containing t as [start, end)
func DayBounds(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	start := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// GetNextResetTime returns the start of the next UTC day, when daily spin
// allowances reset
func GetNextResetTime(now time.Time) time.Time {
	_, end := DayBounds(now)
	return end
}
