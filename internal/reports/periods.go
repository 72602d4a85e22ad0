// Package reports builds and delivers periodic performance reports.
package reports

import "time"

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeeklyPeriod returns [previous Monday, this Monday) relative to now, in now's zone.
func WeeklyPeriod(now time.Time) (time.Time, time.Time) {
	day := midnight(now)
	// Monday is 0 days back, Sunday is 6.
	back := (int(day.Weekday()) + 6) % 7
	end := day.AddDate(0, 0, -back)
	return end.AddDate(0, 0, -7), end
}

// MonthlyPeriod returns [first of previous month, first of this month).
func MonthlyPeriod(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	end := time.Date(y, m, 1, 0, 0, 0, 0, now.Location())
	return end.AddDate(0, -1, 0), end
}

// IsFirstMondayOfMonth reports whether now falls on the month's first Monday.
func IsFirstMondayOfMonth(now time.Time) bool {
	return now.Weekday() == time.Monday && now.Day() <= 7
}

// previousPeriod is the window of equal length immediately before [start, end).
func previousPeriod(start, end time.Time) (time.Time, time.Time) {
	return start.Add(-end.Sub(start)), start
}
