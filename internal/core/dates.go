package core

import (
	"fmt"
	"time"
)

// DaysInMonth returns the number of days in the given calendar month.
func DaysInMonth(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDayToMonth limits day to the valid day range of month/year.
// Day 31 in February 2024 becomes 29, in February 2023 it becomes 28.
func ClampDayToMonth(day int, month time.Month, year int) int {
	if day < 1 {
		return 1
	}
	if last := DaysInMonth(month, year); day > last {
		return last
	}
	return day
}

// WeekBounds returns the first and last day of the week containing d, for a
// week beginning on weekStart. Both results are truncated to midnight UTC.
func WeekBounds(d time.Time, weekStart time.Weekday) (start, end time.Time) {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	start = day.AddDate(0, 0, -offset)
	end = start.AddDate(0, 0, 6)
	return start, end
}

// ISOWeekKey formats the ISO year and week of d as "2025-W11".
func ISOWeekKey(d time.Time) (key string, year, week int) {
	year, week = d.ISOWeek()
	return isoWeekKey(year, week), year, week
}

func isoWeekKey(year, week int) string {
	return fmt.Sprintf("%04d-W%02d", year, week)
}
