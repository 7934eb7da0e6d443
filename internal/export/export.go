// Package export renders a ledger snapshot and its statistics into a
// downloadable report.
package export

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"attendance-ledger/internal/models"
	"attendance-ledger/internal/stats"
)

type Layout int

const (
	// LayoutSummary is the header block, statistics and one row per record.
	LayoutSummary Layout = iota
	// LayoutPeriod adds a per-day table for the trailing window.
	LayoutPeriod
)

// LayoutFor picks the layout matching a view mode.
func LayoutFor(viewMode string) Layout {
	if stats.WindowFor(viewMode) > 0 {
		return LayoutPeriod
	}
	return LayoutSummary
}

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("export.ParseFormat: unsupported format %q", s)
}

const (
	placeholderNA      = "N/A"
	placeholderNotes   = "No notes"
	placeholderUnknown = "Unknown"

	timestampLayout = "2006-01-02 15:04:05"
)

var recordColumns = []string{
	"Student Name", "Student Contact", "Date", "Status", "Check In", "Check Out", "Notes", "Program", "Class",
}

var periodColumns = []string{
	"Date", "Present", "Absent", "Late", "Total", "Attendance Rate",
}

// Filter describes the criteria that produced the exported snapshot. It is
// printed in the report header only.
type Filter struct {
	ViewMode string
	Date     string
	Program  string
	Class    string
}

// Directory resolves the student details shown next to each record.
type Directory interface {
	StudentProfiles(ctx context.Context, ids []string) (map[string]models.StudentProfile, error)
}

type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

type Exporter struct {
	dir     Directory
	nowFunc func() time.Time
}

func New(dir Directory) *Exporter {
	return &Exporter{dir: dir, nowFunc: time.Now}
}

// Export renders records and counts in the requested layout and format.
func (e *Exporter) Export(ctx context.Context, records models.Snapshot, counts stats.Counts, filter Filter, layout Layout, format Format) (Artifact, error) {
	const op = "export.Exporter.Export"

	profiles := map[string]models.StudentProfile{}
	if e.dir != nil && len(records) > 0 {
		var err error
		profiles, err = e.dir.StudentProfiles(ctx, records.StudentIDs())
		if err != nil {
			return Artifact{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	now := e.nowFunc()
	lines := Lines(records, profiles, counts, filter, layout, now)
	name := "attendance_report_" + now.Format(models.DateLayout)

	switch format {
	case FormatXLSX:
		data, err := renderXLSX(lines)
		if err != nil {
			return Artifact{}, fmt.Errorf("%s: %w", op, err)
		}
		return Artifact{
			Filename:    name + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        data,
		}, nil
	default:
		return Artifact{
			Filename:    name + ".csv",
			ContentType: "text/csv; charset=utf-8",
			Data:        renderCSV(lines),
		}, nil
	}
}

// Lines builds the report table. An empty line separates sections.
func Lines(records models.Snapshot, profiles map[string]models.StudentProfile, counts stats.Counts, filter Filter, layout Layout, now time.Time) [][]string {
	lines := [][]string{
		{"Attendance Report"},
		{"Generated At", now.Format(timestampLayout)},
		{"View Mode", orDefault(filter.ViewMode, "daily")},
		{"Date", orDefault(filter.Date, "All Dates")},
		{"Program", orDefault(filter.Program, "All Programs")},
		{"Class", orDefault(filter.Class, "All Classes")},
		{},
		{"Statistics"},
		{"Total Records", strconv.Itoa(counts.Total)},
		{"Present", strconv.Itoa(counts.Present)},
		{"Absent", strconv.Itoa(counts.Absent)},
		{"Late", strconv.Itoa(counts.Late)},
		{"Attendance Rate", formatRate(stats.AttendanceRate(counts))},
		{},
		{"Attendance Records"},
		recordColumns,
	}

	for _, r := range records {
		p := profiles[r.StudentID]
		lines = append(lines, []string{
			orDefault(p.Name, placeholderUnknown),
			orDefault(p.Contact, placeholderNA),
			r.Date.Format(models.DateLayout),
			string(r.Status),
			deref(r.CheckIn, placeholderNA),
			deref(r.CheckOut, placeholderNA),
			deref(r.Notes, placeholderNotes),
			orDefault(p.ProgramName, placeholderUnknown),
			orDefault(p.ClassName, placeholderUnknown),
		})
	}

	window := stats.WindowFor(filter.ViewMode)
	if layout != LayoutPeriod || window == 0 {
		return lines
	}

	lines = append(lines,
		[]string{},
		[]string{fmt.Sprintf("Period Summary (Last %d Days)", window)},
		periodColumns,
	)

	for _, e := range stats.PeriodSeries(records, window, now) {
		lines = append(lines, []string{
			e.Date.Format(models.DateLayout),
			strconv.Itoa(e.Present),
			strconv.Itoa(e.Absent),
			strconv.Itoa(e.Late),
			strconv.Itoa(e.Total),
			formatRate(e.Rate),
		})
	}

	return lines
}

func formatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', 1, 64) + "%"
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func deref(s *string, def string) string {
	if s == nil {
		return def
	}
	return orDefault(*s, def)
}
