// Package bulk applies one attendance decision to many students at once.
// Each student's write succeeds or fails on its own; nothing is rolled back.
package bulk

import (
	"context"
	"io"
	"log/slog"
	"time"

	"attendance-ledger/internal/models"
	"attendance-ledger/internal/storage"
	"attendance-ledger/pkg/sl"

	"golang.org/x/sync/errgroup"
)

type Creator interface {
	Create(ctx context.Context, rec models.NewRecord) (models.AttendanceRecord, error)
}

// Template is the decision applied to every selected student. In an
// override, an empty Status or nil field falls back to the template's value.
type Template struct {
	Status   models.Status
	CheckIn  *string
	CheckOut *string
	Notes    *string
}

func (t Template) merge(o Template) Template {
	if o.Status != "" {
		t.Status = o.Status
	}
	if o.CheckIn != nil {
		t.CheckIn = o.CheckIn
	}
	if o.CheckOut != nil {
		t.CheckOut = o.CheckOut
	}
	if o.Notes != nil {
		t.Notes = o.Notes
	}
	return t
}

type Failure struct {
	StudentID string
	Err       error
}

type Result struct {
	Succeeded int
	Failed    int
	Created   []models.AttendanceRecord
	Failures  []Failure
}

func (r Result) Errors() []error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

func (r Result) Message() string {
	return storage.BulkMessage(r.Succeeded, r.Failed)
}

// Resolve turns a template plus per-student overrides into one record per
// student, in the order of studentIDs.
func Resolve(date time.Time, studentIDs []string, tpl Template, overrides map[string]Template) []models.NewRecord {
	recs := make([]models.NewRecord, 0, len(studentIDs))
	for _, id := range studentIDs {
		t := tpl
		if o, ok := overrides[id]; ok {
			t = tpl.merge(o)
		}
		recs = append(recs, models.NewRecord{
			StudentID: id,
			Date:      date,
			Status:    t.Status,
			CheckIn:   t.CheckIn,
			CheckOut:  t.CheckOut,
			Notes:     t.Notes,
		})
	}
	return recs
}

type Coordinator struct {
	creator Creator
	limit   int
	log     *slog.Logger
}

// New returns a Coordinator that runs at most limit writes at a time;
// limit <= 0 dispatches every write at once.
func New(creator Creator, log *slog.Logger, limit int) *Coordinator {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Coordinator{creator: creator, limit: limit, log: log}
}

// Apply issues one create per record and waits for all of them to settle.
func (c *Coordinator) Apply(ctx context.Context, recs []models.NewRecord) Result {
	const op = "bulk.Apply"

	log := c.log.With(slog.String("op", op))

	created := make([]*models.AttendanceRecord, len(recs))
	errs := make([]error, len(recs))

	var g errgroup.Group
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}

	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			r, err := c.creator.Create(ctx, rec)
			if err != nil {
				errs[i] = err
				return nil
			}
			created[i] = &r
			return nil
		})
	}

	// members never return an error
	_ = g.Wait()

	var res Result
	for i := range recs {
		if errs[i] != nil {
			res.Failed++
			res.Failures = append(res.Failures, Failure{StudentID: recs[i].StudentID, Err: errs[i]})
			log.Warn("bulk member failed",
				slog.String("student_id", recs[i].StudentID),
				slog.String("kind", storage.KindOf(errs[i]).String()),
				sl.Err(errs[i]),
			)
			continue
		}
		res.Succeeded++
		res.Created = append(res.Created, *created[i])
	}

	log.Info("bulk apply finished", slog.Int("succeeded", res.Succeeded), slog.Int("failed", res.Failed))

	return res
}

func (c *Coordinator) ApplyBulk(ctx context.Context, studentIDs []string, tpl Template, date time.Time, overrides map[string]Template) Result {
	return c.Apply(ctx, Resolve(date, studentIDs, tpl, overrides))
}
