// Package ledger is the single point of mutation for attendance records. It
// keeps an in-memory copy of the store's records and hands out snapshots of
// it to read-only consumers.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"attendance-ledger/internal/lock"
	"attendance-ledger/internal/models"
	"attendance-ledger/internal/storage"
	"attendance-ledger/pkg/sl"
)

const (
	DefaultCreateAttempts = 3
	DefaultRetryBaseDelay = time.Second
	DefaultLockTTL        = 10 * time.Second
)

var ErrCreateInFlight = errors.New("a record for this student and date is already being saved")

type Store interface {
	CreateAttendance(ctx context.Context, rec models.NewRecord) (*models.AttendanceRecord, error)
	UpdateAttendance(ctx context.Context, id string, p models.Patch) (*models.AttendanceRecord, error)
	DeleteAttendance(ctx context.Context, id string) error
	ListAttendance(ctx context.Context) ([]*models.AttendanceRecord, error)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

type Option func(*Ledger)

func WithLogger(log *slog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// WithRetry sets the total number of create attempts and the delay unit;
// the wait before attempt n+1 is n*baseDelay.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(l *Ledger) {
		if attempts > 0 {
			l.attempts = attempts
		}
		if baseDelay >= 0 {
			l.baseDelay = baseDelay
		}
	}
}

func WithSleeper(s Sleeper) Option {
	return func(l *Ledger) { l.sleep = s }
}

// WithLocker guards each create with a lock on (student, date) so that
// concurrent submissions of the same record do not both reach the store.
func WithLocker(locker lock.Locker, ttl time.Duration) Option {
	return func(l *Ledger) {
		l.locker = locker
		if ttl > 0 {
			l.lockTTL = ttl
		}
	}
}

type Ledger struct {
	store     Store
	locker    lock.Locker
	lockTTL   time.Duration
	attempts  int
	baseDelay time.Duration
	sleep     Sleeper
	log       *slog.Logger

	mu sync.RWMutex
	// newest creation first
	records []models.AttendanceRecord
}

func New(store Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		lockTTL:   DefaultLockTTL,
		attempts:  DefaultCreateAttempts,
		baseDelay: DefaultRetryBaseDelay,
		sleep:     sleepContext,
		log:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load replaces the in-memory records with the store's current contents.
func (l *Ledger) Load(ctx context.Context) error {
	const op = "ledger.Load"

	recs, err := l.store.ListAttendance(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	records := make([]models.AttendanceRecord, 0, len(recs))
	for _, r := range recs {
		records = append(records, *r)
	}

	l.mu.Lock()
	l.records = records
	l.mu.Unlock()

	l.log.Info("ledger loaded", slog.String("op", op), slog.Int("count", len(records)))

	return nil
}

// Create stores a new record. Connection failures are retried up to the
// configured number of attempts; any other failure is returned at once.
func (l *Ledger) Create(ctx context.Context, rec models.NewRecord) (models.AttendanceRecord, error) {
	const op = "ledger.Create"

	log := l.log.With(
		slog.String("op", op),
		slog.String("student_id", rec.StudentID),
	)

	if err := validateNew(rec); err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	if l.locker != nil {
		key := lock.AttendanceKey(rec.StudentID, rec.Date)

		locked, err := l.locker.Lock(ctx, key, l.lockTTL)
		switch {
		case err != nil:
			log.Warn("create guard unavailable, continuing without it", sl.Err(err))
		case !locked:
			return models.AttendanceRecord{}, fmt.Errorf("%s: %w", op, storage.NewError(storage.KindDuplicate, ErrCreateInFlight))
		default:
			defer func() {
				if err := l.locker.Unlock(context.WithoutCancel(ctx), key); err != nil {
					log.Warn("failed to release create guard", sl.Err(err))
				}
			}()
		}
	}

	var lastErr error

	for attempt := 1; attempt <= l.attempts; attempt++ {
		created, err := l.store.CreateAttendance(ctx, rec)
		if err == nil {
			l.mu.Lock()
			l.records = append([]models.AttendanceRecord{*created}, l.records...)
			l.mu.Unlock()

			log.Debug("attendance created", slog.String("id", created.ID), slog.Int("attempt", attempt))
			return *created, nil
		}

		lastErr = err

		if !storage.IsRetryable(err) || attempt == l.attempts {
			break
		}

		delay := time.Duration(attempt) * l.baseDelay
		log.Warn("create failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			sl.Err(err),
		)

		if err := l.sleep(ctx, delay); err != nil {
			return models.AttendanceRecord{}, fmt.Errorf("%s: %w", op, err)
		}
	}

	log.Error("create failed", slog.String("kind", storage.KindOf(lastErr).String()), sl.Err(lastErr))

	return models.AttendanceRecord{}, fmt.Errorf("%s: %w", op, lastErr)
}

// Update applies p to the record with the given id. StudentID and Date are
// not part of a patch and therefore never change.
func (l *Ledger) Update(ctx context.Context, id string, p models.Patch) (models.AttendanceRecord, error) {
	const op = "ledger.Update"

	if p.Status != nil && !p.Status.Known() {
		return models.AttendanceRecord{}, fmt.Errorf("%s: %w", op,
			storage.Errorf(storage.KindValidation, "unknown status %q", *p.Status))
	}

	updated, err := l.store.UpdateAttendance(ctx, id, p)
	if err != nil {
		return models.AttendanceRecord{}, fmt.Errorf("%s: %w", op, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.records {
		if l.records[i].ID == id {
			l.records[i].Apply(p)
			return l.records[i], nil
		}
	}

	return *updated, nil
}

func (l *Ledger) Delete(ctx context.Context, id string) error {
	const op = "ledger.Delete"

	if err := l.store.DeleteAttendance(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.records {
		if l.records[i].ID == id {
			l.records = append(l.records[:i], l.records[i+1:]...)
			break
		}
	}

	return nil
}

// List returns a snapshot ordered by date, most recent first. Records on the
// same date keep their creation order, newest first.
func (l *Ledger) List() models.Snapshot {
	l.mu.RLock()
	snap := make(models.Snapshot, len(l.records))
	copy(snap, l.records)
	l.mu.RUnlock()

	sort.SliceStable(snap, func(i, j int) bool {
		return models.Day(snap[i].Date).After(models.Day(snap[j].Date))
	})

	return snap
}

// Find reports the record already stored for studentID on date, if any.
func (l *Ledger) Find(studentID string, date time.Time) (models.AttendanceRecord, bool) {
	return l.List().Find(studentID, date)
}

func validateNew(rec models.NewRecord) error {
	switch {
	case rec.StudentID == "":
		return storage.Errorf(storage.KindValidation, "student is required")
	case rec.Date.IsZero():
		return storage.Errorf(storage.KindValidation, "date is required")
	case !rec.Status.Known():
		return storage.Errorf(storage.KindValidation, "unknown status %q", rec.Status)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
