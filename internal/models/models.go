package models

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

func (s Status) Known() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// AttendanceRecord is one student's attendance for one calendar day.
// ID, StudentID, Date and CreatedAt never change after creation.
type AttendanceRecord struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	Date      time.Time `db:"date"`
	Status    Status    `db:"status"`
	CheckIn   *string   `db:"check_in"`
	CheckOut  *string   `db:"check_out"`
	Notes     *string   `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
}

// NewRecord carries the caller-supplied fields of a record to be created.
type NewRecord struct {
	StudentID string
	Date      time.Time
	Status    Status
	CheckIn   *string
	CheckOut  *string
	Notes     *string
}

// Patch holds the mutable fields of a record. Nil fields are left as they are.
type Patch struct {
	Status   *Status
	CheckIn  *string
	CheckOut *string
	Notes    *string
}

func (p Patch) Empty() bool {
	return p.Status == nil && p.CheckIn == nil && p.CheckOut == nil && p.Notes == nil
}

func (r *AttendanceRecord) Apply(p Patch) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.CheckIn != nil {
		r.CheckIn = p.CheckIn
	}
	if p.CheckOut != nil {
		r.CheckOut = p.CheckOut
	}
	if p.Notes != nil {
		r.Notes = p.Notes
	}
}

// StudentProfile is what the external student directory knows about a student.
type StudentProfile struct {
	StudentID   string `db:"student_id"`
	Name        string `db:"name"`
	Contact     string `db:"contact"`
	ProgramName string `db:"program_name"`
	ClassName   string `db:"class_name"`
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("models.ParseDate: %w", err)
	}
	return t, nil
}

// MustDate panics on a malformed date. Intended for literals.
func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
