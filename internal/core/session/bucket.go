package session

import "time"

// Buckets returns the week and month bucket starts of a UTC timestamp as seen
// in loc. Weeks start on Monday. The results are wall-clock midnights stored
// with a UTC location so they compare equal across runs.
func Buckets(t time.Time, loc *time.Location) (week, month time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) + 6) % 7
	week = day.AddDate(0, 0, -offset)
	month = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, time.UTC)
	return week, month
}
