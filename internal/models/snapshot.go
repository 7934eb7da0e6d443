package models

import "time"

// Snapshot is a read-only copy of the ledger at one moment, most recent date
// first. Consumers may filter it freely; it is never written back.
type Snapshot []AttendanceRecord

func (s Snapshot) OnDate(date time.Time) Snapshot {
	var out Snapshot
	for _, r := range s {
		if SameDay(r.Date, date) {
			out = append(out, r)
		}
	}
	return out
}

func (s Snapshot) ForStudent(studentID string) Snapshot {
	var out Snapshot
	for _, r := range s {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out
}

// Between keeps records whose day falls within [from, to], both inclusive.
func (s Snapshot) Between(from, to time.Time) Snapshot {
	start := Day(from)
	end := Day(to)

	var out Snapshot
	for _, r := range s {
		d := Day(r.Date)
		if !d.Before(start) && !d.After(end) {
			out = append(out, r)
		}
	}
	return out
}

// Find returns the first record for studentID on date. Callers use it to
// check for an existing record before creating one.
func (s Snapshot) Find(studentID string, date time.Time) (AttendanceRecord, bool) {
	for _, r := range s {
		if r.StudentID == studentID && SameDay(r.Date, date) {
			return r, true
		}
	}
	return AttendanceRecord{}, false
}

func (s Snapshot) StudentIDs() []string {
	seen := make(map[string]struct{}, len(s))
	var ids []string
	for _, r := range s {
		if _, ok := seen[r.StudentID]; ok {
			continue
		}
		seen[r.StudentID] = struct{}{}
		ids = append(ids, r.StudentID)
	}
	return ids
}
