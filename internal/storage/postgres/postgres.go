package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"

	"attendance-ledger/internal/models"
	"attendance-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Storage struct {
	db *sql.DB
}

func New(storagePath string) (*Storage, error) {
	const op = "storage.postgres.New"

	db, err := sql.Open("postgres", storagePath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// #### attendance ####

func (s *Storage) CreateAttendance(ctx context.Context, rec models.NewRecord) (*models.AttendanceRecord, error) {
	const op = "storage.postgres.CreateAttendance"

	var created models.AttendanceRecord

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO attendance_records
		(id, student_id, date, status, check_in, check_out, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, student_id, date, status, check_in, check_out, notes, created_at`,
		uuid.NewString(),
		rec.StudentID,
		models.Day(rec.Date),
		string(rec.Status),
		rec.CheckIn,
		rec.CheckOut,
		rec.Notes,
	).Scan(
		&created.ID,
		&created.StudentID,
		&created.Date,
		&created.Status,
		&created.CheckIn,
		&created.CheckOut,
		&created.Notes,
		&created.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return &created, nil
}

func (s *Storage) UpdateAttendance(ctx context.Context, id string, p models.Patch) (*models.AttendanceRecord, error) {
	const op = "storage.postgres.UpdateAttendance"

	var status *string
	if p.Status != nil {
		v := string(*p.Status)
		status = &v
	}

	var updated models.AttendanceRecord

	// NULL parameters keep the stored value
	err := s.db.QueryRowContext(ctx,
		`UPDATE attendance_records SET
		status = COALESCE($2, status),
		check_in = COALESCE($3, check_in),
		check_out = COALESCE($4, check_out),
		notes = COALESCE($5, notes)
		WHERE id=$1
		RETURNING id, student_id, date, status, check_in, check_out, notes, created_at`,
		id, status, p.CheckIn, p.CheckOut, p.Notes,
	).Scan(
		&updated.ID,
		&updated.StudentID,
		&updated.Date,
		&updated.Status,
		&updated.CheckIn,
		&updated.CheckOut,
		&updated.Notes,
		&updated.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return &updated, nil
}

func (s *Storage) DeleteAttendance(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteAttendance"

	res, err := s.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

func (s *Storage) ListAttendance(ctx context.Context) ([]*models.AttendanceRecord, error) {
	const op = "storage.postgres.ListAttendance"

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_id, date, status, check_in, check_out, notes, created_at
		FROM attendance_records
		ORDER BY date DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	defer rows.Close()

	var records []*models.AttendanceRecord

	for rows.Next() {
		var rec models.AttendanceRecord

		err := rows.Scan(
			&rec.ID,
			&rec.StudentID,
			&rec.Date,
			&rec.Status,
			&rec.CheckIn,
			&rec.CheckOut,
			&rec.Notes,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return records, nil
}

// #### students ####

func (s *Storage) StudentProfiles(ctx context.Context, ids []string) (map[string]models.StudentProfile, error) {
	const op = "storage.postgres.StudentProfiles"

	profiles := make(map[string]models.StudentProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT s.student_id, s.name, COALESCE(s.contact, ''),
		COALESCE(p.name, ''), COALESCE(c.name, '')
		FROM students s
		LEFT JOIN programs p ON p.id = s.program_id
		LEFT JOIN classes c ON c.id = s.class_id
		WHERE s.student_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	defer rows.Close()

	for rows.Next() {
		var p models.StudentProfile

		err := rows.Scan(&p.StudentID, &p.Name, &p.Contact, &p.ProgramName, &p.ClassName)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		profiles[p.StudentID] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	return profiles, nil
}

// classify tags err with the storage.Kind the ledger uses to decide on retries.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505":
			return storage.NewError(storage.KindDuplicate, err)
		case pqErr.Code == "23503" || pqErr.Code == "23502" || pqErr.Code == "23514":
			return storage.NewError(storage.KindValidation, err)
		case pqErr.Code.Class() == "22":
			return storage.NewError(storage.KindValidation, err)
		case pqErr.Code.Class() == "08" || pqErr.Code == "57P01":
			return storage.NewError(storage.KindConnection, err)
		}

		return err
	}

	var netErr net.Error
	switch {
	case errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.As(err, &netErr):
		return storage.NewError(storage.KindConnection, err)
	}

	return err
}
