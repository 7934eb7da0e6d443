package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"attendance-ledger/internal/models"
	"attendance-ledger/internal/storage"
	"attendance-ledger/internal/storage/inmem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

// failCreates makes the first n creates fail with err.
func failCreates(store *inmem.Storage, n int, err error) *int {
	calls := 0
	store.SetHook(func(op string, _ models.AttendanceRecord) error {
		if op != "create" {
			return nil
		}
		calls++
		if calls <= n {
			return err
		}
		return nil
	})
	return &calls
}

func setup(t *testing.T) (*Ledger, *inmem.Storage, *recordingSleeper) {
	t.Helper()
	store := inmem.New()
	sleeper := &recordingSleeper{}
	return New(store, WithSleeper(sleeper.sleep)), store, sleeper
}

func present(studentID, date string) models.NewRecord {
	return models.NewRecord{StudentID: studentID, Date: models.MustDate(date), Status: models.StatusPresent}
}

func strPtr(s string) *string { return &s }

func TestLedger_CreateThenList(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	seen := map[string]bool{}
	for _, id := range []string{"s1", "s2", "s3"} {
		rec, err := l.Create(ctx, present(id, "2024-01-15"))
		require.NoError(t, err)
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
		assert.False(t, seen[rec.ID], "id reused")
		seen[rec.ID] = true

		count := 0
		for _, r := range l.List() {
			if r.ID == rec.ID {
				count++
			}
		}
		assert.Equal(t, 1, count)
	}

	list := l.List()
	require.Len(t, list, 3)
	assert.Equal(t, "s3", list[0].StudentID, "most recently created sorts first")
}

func TestLedger_ListOrdersByDateDesc(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	for _, d := range []string{"2024-01-10", "2024-01-15", "2024-01-12"} {
		_, err := l.Create(ctx, present("s1", d))
		require.NoError(t, err)
	}

	list := l.List()
	require.Len(t, list, 3)
	assert.Equal(t, "2024-01-15", list[0].Date.Format(models.DateLayout))
	assert.Equal(t, "2024-01-12", list[1].Date.Format(models.DateLayout))
	assert.Equal(t, "2024-01-10", list[2].Date.Format(models.DateLayout))
}

func TestLedger_CreateRetriesConnectionErrors(t *testing.T) {
	l, store, sleeper := setup(t)

	calls := failCreates(store, 2, storage.Errorf(storage.KindConnection, "connection closed"))

	rec, err := l.Create(context.Background(), present("s1", "2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
	assert.Len(t, l.List(), 1)
	assert.Equal(t, rec.ID, l.List()[0].ID)
}

func TestLedger_CreateGivesUpAfterThreeAttempts(t *testing.T) {
	l, store, sleeper := setup(t)

	fault := storage.Errorf(storage.KindConnection, "network unreachable")
	calls := failCreates(store, 10, fault)

	_, err := l.Create(context.Background(), present("s1", "2024-01-15"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fault))
	assert.Equal(t, storage.KindConnection, storage.KindOf(err))
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeper.delays)
	assert.Empty(t, l.List())
}

func TestLedger_CreateDoesNotRetryOtherErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind storage.Kind
	}{
		{name: "duplicate", err: storage.Errorf(storage.KindDuplicate, "unique violation"), kind: storage.KindDuplicate},
		{name: "unclassified", err: errors.New("disk full"), kind: storage.KindUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, store, sleeper := setup(t)
			calls := failCreates(store, 10, tt.err)

			_, err := l.Create(context.Background(), present("s1", "2024-01-15"))
			require.Error(t, err)
			assert.Equal(t, tt.kind, storage.KindOf(err))
			assert.Equal(t, 1, *calls)
			assert.Empty(t, sleeper.delays)
		})
	}
}

func TestLedger_CreateValidatesBeforeStore(t *testing.T) {
	l, store, _ := setup(t)
	calls := failCreates(store, 0, nil)

	tests := []struct {
		name string
		rec  models.NewRecord
	}{
		{name: "no student", rec: models.NewRecord{Date: models.MustDate("2024-01-15"), Status: models.StatusPresent}},
		{name: "no date", rec: models.NewRecord{StudentID: "s1", Status: models.StatusPresent}},
		{name: "bad status", rec: models.NewRecord{StudentID: "s1", Date: models.MustDate("2024-01-15"), Status: "excused"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Create(context.Background(), tt.rec)
			assert.Equal(t, storage.KindValidation, storage.KindOf(err))
		})
	}
	assert.Equal(t, 0, *calls)
}

func TestLedger_CreateStopsWhenContextDone(t *testing.T) {
	store := inmem.New()
	failCreates(store, 10, storage.Errorf(storage.KindConnection, "connection reset"))

	ctx, cancel := context.WithCancel(context.Background())
	l := New(store, WithSleeper(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	_, err := l.Create(ctx, present("s1", "2024-01-15"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLedger_UpdateKeepsIdentity(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	rec, err := l.Create(ctx, models.NewRecord{
		StudentID: "s1",
		Date:      models.MustDate("2024-01-15"),
		Status:    models.StatusPresent,
		CheckIn:   strPtr("08:30"),
		Notes:     strPtr("on time"),
	})
	require.NoError(t, err)

	for _, st := range []models.Status{models.StatusLate, models.StatusAbsent, models.StatusPresent} {
		st := st
		updated, err := l.Update(ctx, rec.ID, models.Patch{Status: &st})
		require.NoError(t, err)
		assert.Equal(t, st, updated.Status)
		assert.Equal(t, rec.StudentID, updated.StudentID)
		assert.True(t, rec.Date.Equal(updated.Date))
		assert.Equal(t, rec.ID, updated.ID)
		assert.Equal(t, "08:30", *updated.CheckIn, "unspecified fields survive")
		assert.Equal(t, "on time", *updated.Notes)
	}

	got, ok := l.Find("s1", models.MustDate("2024-01-15"))
	require.True(t, ok)
	assert.Equal(t, models.StatusPresent, got.Status)
}

func TestLedger_UpdateErrors(t *testing.T) {
	l, _, _ := setup(t)

	bad := models.Status("excused")
	_, err := l.Update(context.Background(), "x", models.Patch{Status: &bad})
	assert.Equal(t, storage.KindValidation, storage.KindOf(err))

	_, err = l.Update(context.Background(), "missing", models.Patch{Notes: strPtr("x")})
	assert.Equal(t, storage.KindNotFound, storage.KindOf(err))
}

func TestLedger_Delete(t *testing.T) {
	l, _, _ := setup(t)
	ctx := context.Background()

	a, err := l.Create(ctx, present("s1", "2024-01-15"))
	require.NoError(t, err)
	b, err := l.Create(ctx, present("s2", "2024-01-15"))
	require.NoError(t, err)

	require.NoError(t, l.Delete(ctx, a.ID))

	list := l.List()
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	err = l.Delete(ctx, a.ID)
	assert.Equal(t, storage.KindNotFound, storage.KindOf(err))
}

func TestLedger_Load(t *testing.T) {
	store := inmem.New()
	ctx := context.Background()
	_, err := store.CreateAttendance(ctx, present("s1", "2024-01-14"))
	require.NoError(t, err)
	_, err = store.CreateAttendance(ctx, present("s2", "2024-01-15"))
	require.NoError(t, err)

	l := New(store)
	require.NoError(t, l.Load(ctx))

	list := l.List()
	require.Len(t, list, 2)
	assert.Equal(t, "s2", list[0].StudentID)
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	unlocked []string
	err      error
}

func (f *fakeLocker) Lock(_ context.Context, key string, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeLocker) Unlock(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
	f.unlocked = append(f.unlocked, key)
	return nil
}

func TestLedger_CreateGuard(t *testing.T) {
	store := inmem.New()
	locker := &fakeLocker{held: map[string]bool{}}
	l := New(store, WithLocker(locker, time.Second))
	ctx := context.Background()

	_, err := l.Create(ctx, present("s1", "2024-01-15"))
	require.NoError(t, err)
	assert.Equal(t, []string{"attendance:s1:2024-01-15"}, locker.unlocked)

	locker.held["attendance:s2:2024-01-15"] = true
	_, err = l.Create(ctx, present("s2", "2024-01-15"))
	assert.True(t, errors.Is(err, ErrCreateInFlight))
	assert.Equal(t, storage.KindDuplicate, storage.KindOf(err))

	locker.err = errors.New("redis down")
	_, err = l.Create(ctx, present("s3", "2024-01-15"))
	assert.NoError(t, err, "an unavailable guard does not block writes")
}
