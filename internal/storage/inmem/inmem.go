package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"attendance-ledger/internal/models"
	"attendance-ledger/internal/storage"

	"github.com/google/uuid"
)

// Hook is called before a write is applied. A non-nil error aborts the write
// and is returned to the caller unchanged.
type Hook func(op string, rec models.AttendanceRecord) error

type row struct {
	rec models.AttendanceRecord
	seq int
}

type Storage struct {
	mutex    sync.RWMutex
	table    map[string]*row
	seq      int
	students map[string]models.StudentProfile
	hook     Hook
	nowFunc  func() time.Time
}

func New() *Storage {
	return &Storage{
		table:    make(map[string]*row),
		students: make(map[string]models.StudentProfile),
		nowFunc:  time.Now,
	}
}

// SetHook installs h for all subsequent writes. Pass nil to remove it.
func (s *Storage) SetHook(h Hook) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.hook = h
}

func (s *Storage) AddStudent(p models.StudentProfile) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.students[p.StudentID] = p
}

func (s *Storage) Close() error {
	return nil
}

func (s *Storage) CreateAttendance(ctx context.Context, rec models.NewRecord) (*models.AttendanceRecord, error) {
	const op = "storage.inmem.CreateAttendance"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	created := models.AttendanceRecord{
		ID:        uuid.NewString(),
		StudentID: rec.StudentID,
		Date:      models.Day(rec.Date),
		Status:    rec.Status,
		CheckIn:   rec.CheckIn,
		CheckOut:  rec.CheckOut,
		Notes:     rec.Notes,
		CreatedAt: s.nowFunc().UTC(),
	}

	if s.hook != nil {
		if err := s.hook("create", created); err != nil {
			return nil, err
		}
	}

	s.seq++
	s.table[created.ID] = &row{rec: created, seq: s.seq}

	return &created, nil
}

func (s *Storage) UpdateAttendance(ctx context.Context, id string, p models.Patch) (*models.AttendanceRecord, error) {
	const op = "storage.inmem.UpdateAttendance"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, ok := s.table[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if s.hook != nil {
		if err := s.hook("update", r.rec); err != nil {
			return nil, err
		}
	}

	// only save set fields
	r.rec.Apply(p)
	updated := r.rec

	return &updated, nil
}

func (s *Storage) DeleteAttendance(ctx context.Context, id string) error {
	const op = "storage.inmem.DeleteAttendance"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	r, ok := s.table[id]
	if !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if s.hook != nil {
		if err := s.hook("delete", r.rec); err != nil {
			return err
		}
	}

	delete(s.table, id)
	return nil
}

// ListAttendance returns every record, most recent date first and most
// recently created first within a date.
func (s *Storage) ListAttendance(ctx context.Context) ([]*models.AttendanceRecord, error) {
	const op = "storage.inmem.ListAttendance"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	rows := make([]*row, 0, len(s.table))
	for _, r := range s.table {
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].rec.Date.Equal(rows[j].rec.Date) {
			return rows[i].rec.Date.After(rows[j].rec.Date)
		}
		return rows[i].seq > rows[j].seq
	})

	out := make([]*models.AttendanceRecord, 0, len(rows))
	for _, r := range rows {
		rec := r.rec
		out = append(out, &rec)
	}
	return out, nil
}

func (s *Storage) StudentProfiles(ctx context.Context, ids []string) (map[string]models.StudentProfile, error) {
	const op = "storage.inmem.StudentProfiles"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make(map[string]models.StudentProfile, len(ids))
	for _, id := range ids {
		if p, ok := s.students[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
