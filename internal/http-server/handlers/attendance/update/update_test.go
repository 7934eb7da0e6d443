package update

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"attendance-ledger/internal/ledger"
	"attendance-ledger/internal/models"
	"attendance-ledger/internal/storage/inmem"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (http.Handler, *ledger.Ledger) {
	t.Helper()
	l := ledger.New(inmem.New())
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := chi.NewRouter()
	router.Put("/attendance/{id}", New(log, l))
	return router, l
}

func put(h http.Handler, id, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPut, "/attendance/"+id, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestUpdate_ChangesStatusOnly(t *testing.T) {
	h, l := setup(t)

	rec, err := l.Create(context.Background(), models.NewRecord{
		StudentID: "s1",
		Date:      models.MustDate("2024-01-15"),
		Status:    models.StatusPresent,
	})
	require.NoError(t, err)

	rr := put(h, rec.ID, `{"status":"late","notes":"bus"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp.Attendance)
	assert.Equal(t, rec.ID, resp.Attendance.ID)
	assert.Equal(t, "s1", resp.Attendance.StudentID)
	assert.Equal(t, "2024-01-15", resp.Attendance.Date)
	assert.Equal(t, "late", resp.Attendance.Status)

	got, ok := l.Find("s1", models.MustDate("2024-01-15"))
	require.True(t, ok)
	assert.Equal(t, models.StatusLate, got.Status)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "bus", *got.Notes)
}

func TestUpdate_Errors(t *testing.T) {
	h, _ := setup(t)

	assert.Equal(t, http.StatusNotFound, put(h, "missing", `{"status":"absent"}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(h, "missing", `{}`).Code)
	assert.Equal(t, http.StatusBadRequest, put(h, "missing", `{"status":"gone"}`).Code)
}
