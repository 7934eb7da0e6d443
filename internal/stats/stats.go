// Package stats computes attendance statistics over a ledger snapshot. Every
// function is pure: the snapshot is only read.
package stats

import (
	"time"

	"attendance-ledger/internal/models"
)

const (
	WeeklyWindow  = 7
	MonthlyWindow = 30

	calendarDays = 42
)

// Counts tallies records by status. Total includes records whose status is
// not one of the known three, so it can exceed Present+Absent+Late.
type Counts struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	Late    int `json:"late"`
	Total   int `json:"total"`
}

func (c *Counts) add(s models.Status) {
	c.Total++
	switch s {
	case models.StatusPresent:
		c.Present++
	case models.StatusAbsent:
		c.Absent++
	case models.StatusLate:
		c.Late++
	}
}

type RangeStats struct {
	PresentDays int `json:"present_days"`
	LateDays    int `json:"late_days"`
	AbsentDays  int `json:"absent_days"`
}

func (r RangeStats) Counts() Counts {
	return Counts{
		Present: r.PresentDays,
		Absent:  r.AbsentDays,
		Late:    r.LateDays,
		Total:   r.PresentDays + r.AbsentDays + r.LateDays,
	}
}

type DayBucket struct {
	Date    time.Time `json:"date"`
	Present int       `json:"present"`
	Absent  int       `json:"absent"`
	Late    int       `json:"late"`
	InMonth bool      `json:"is_current_month"`
	IsToday bool      `json:"is_today"`
}

type PeriodEntry struct {
	Date time.Time `json:"date"`
	Counts
	Rate float64 `json:"rate"`
}

func Count(records models.Snapshot) Counts {
	var c Counts
	for _, r := range records {
		c.add(r.Status)
	}
	return c
}

func StatsForDate(records models.Snapshot, date time.Time) Counts {
	return Count(records.OnDate(date))
}

// StatsForRange counts one student's records dated within [start, end].
func StatsForRange(records models.Snapshot, studentID string, start, end time.Time) RangeStats {
	c := Count(records.ForStudent(studentID).Between(start, end))
	return RangeStats{
		PresentDays: c.Present,
		LateDays:    c.Late,
		AbsentDays:  c.Absent,
	}
}

// AttendanceRate is the share of records, in percent, that are present or
// late. It is 0 when there are no records.
func AttendanceRate(c Counts) float64 {
	if c.Total == 0 {
		return 0
	}
	return float64(c.Present+c.Late) / float64(c.Total) * 100
}

// CalendarBuckets lays out the six-week grid that displays month, starting
// on the Sunday on or before the first of the month.
func CalendarBuckets(records models.Snapshot, month, today time.Time) []DayBucket {
	byDay := groupByDay(records)

	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	buckets := make([]DayBucket, 0, calendarDays)
	for i := 0; i < calendarDays; i++ {
		day := start.AddDate(0, 0, i)
		c := byDay[day]
		buckets = append(buckets, DayBucket{
			Date:    day,
			Present: c.Present,
			Absent:  c.Absent,
			Late:    c.Late,
			InMonth: day.Month() == first.Month(),
			IsToday: models.SameDay(day, today),
		})
	}

	return buckets
}

// PeriodSeries returns one entry per day for the window days ending on
// today, oldest first.
func PeriodSeries(records models.Snapshot, window int, today time.Time) []PeriodEntry {
	if window <= 0 {
		return nil
	}

	byDay := groupByDay(records)
	end := models.Day(today)

	series := make([]PeriodEntry, 0, window)
	for i := window - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		c := byDay[day]
		series = append(series, PeriodEntry{
			Date:   day,
			Counts: c,
			Rate:   AttendanceRate(c),
		})
	}

	return series
}

// WindowFor maps a view mode to its trailing window length, or 0 for views
// without one.
func WindowFor(viewMode string) int {
	switch viewMode {
	case "weekly":
		return WeeklyWindow
	case "monthly":
		return MonthlyWindow
	}
	return 0
}

func groupByDay(records models.Snapshot) map[time.Time]Counts {
	byDay := make(map[time.Time]Counts)
	for _, r := range records {
		d := models.Day(r.Date)
		c := byDay[d]
		c.add(r.Status)
		byDay[d] = c
	}
	return byDay
}
