package export

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"attendance-ledger/internal/export"
	"attendance-ledger/internal/models"
	"attendance-ledger/internal/storage/inmem"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshot models.Snapshot

func (s snapshot) List() models.Snapshot { return models.Snapshot(s) }

type fakeArchiver struct {
	keys []string
	err  error
}

func (f *fakeArchiver) Store(_ context.Context, key, _ string, _ []byte) error {
	f.keys = append(f.keys, key)
	return f.err
}

func setup(t *testing.T, arch Archiver) http.HandlerFunc {
	t.Helper()

	dir := inmem.New()
	dir.AddStudent(models.StudentProfile{StudentID: "s1", Name: "Ana", Contact: "555-0101", ProgramName: "Piano", ClassName: "A"})
	dir.AddStudent(models.StudentProfile{StudentID: "s2", Name: "Ben", ProgramName: "Violin", ClassName: "B"})

	today := models.Day(time.Now())
	snap := snapshot{
		{ID: "1", StudentID: "s1", Date: today, Status: models.StatusPresent},
		{ID: "2", StudentID: "s2", Date: today, Status: models.StatusAbsent},
		{ID: "3", StudentID: "s1", Date: models.MustDate("2024-01-15"), Status: models.StatusLate},
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(log, Deps{
		Provider: snap,
		Exporter: export.New(dir),
		Dir:      dir,
		Archiver: arch,
	})
}

func TestExport_DailyCSV(t *testing.T) {
	arch := &fakeArchiver{}
	h := setup(t, arch)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/export?date=2024-01-15", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	name := "attendance_report_" + time.Now().Format(models.DateLayout) + ".csv"
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="`+name+`"`, rr.Header().Get("Content-Disposition"))

	body := rr.Body.String()
	assert.True(t, strings.HasPrefix(body, `"Attendance Report"`))
	assert.Contains(t, body, `"Date","2024-01-15"`)
	assert.Contains(t, body, `"Total Records","1"`)
	assert.Contains(t, body, `"Ana","555-0101","2024-01-15","late","N/A","N/A","No notes","Piano","A"`)
	assert.NotContains(t, body, "Period Summary")

	require.Len(t, arch.keys, 1)
	assert.True(t, strings.HasSuffix(arch.keys[0], "/"+name))
}

func TestExport_WeeklyAddsPeriodTable(t *testing.T) {
	h := setup(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/export?view=weekly", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `"View Mode","weekly"`)
	assert.Contains(t, body, `"Total Records","2"`)
	assert.Contains(t, body, `"Attendance Rate","50.0%"`)
	assert.Contains(t, body, `"Period Summary (Last 7 Days)"`)
	assert.Contains(t, body, `"Date","Present","Absent","Late","Total","Attendance Rate"`)
}

func TestExport_ProgramFilter(t *testing.T) {
	h := setup(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/export?program=Violin", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body := rr.Body.String()
	assert.Contains(t, body, `"Program","Violin"`)
	assert.Contains(t, body, `"Total Records","1"`)
	assert.Contains(t, body, `"Ben","N/A"`)
	assert.NotContains(t, body, `"Ana"`)
}

func TestExport_XLSX(t *testing.T) {
	h := setup(t, nil)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/export?format=xlsx", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	assert.Contains(t, rr.Header().Get("Content-Disposition"), ".xlsx")
	// xlsx is a zip container
	assert.True(t, strings.HasPrefix(rr.Body.String(), "PK"))
}

func TestExport_ArchiveFailureStillServes(t *testing.T) {
	h := setup(t, &fakeArchiver{err: errors.New("bucket gone")})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/export", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestExport_BadParams(t *testing.T) {
	h := setup(t, nil)

	for _, q := range []string{"view=yearly", "format=pdf", "date=yesterday"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/reports/export?"+q, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}
