package get

import (
	"errors"
	"log/slog"
	"net/http"

	"attendance-ledger/api"
	"attendance-ledger/internal/http-server/handlers"
	"attendance-ledger/internal/models"
	"attendance-ledger/pkg/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type AttendanceLister interface {
	List() models.Snapshot
}

type Response struct {
	response.Response
	Attendances []api.AttendanceResponse `json:"attendances,omitempty"`
	Attendance  *api.AttendanceResponse  `json:"attendance,omitempty"`
}

func New(log *slog.Logger, lister AttendanceLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.get.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		snap := lister.List()

		if id := chi.URLParam(r, "id"); id != "" {
			for _, rec := range snap {
				if rec.ID == id {
					a := api.FromRecord(rec)
					render.JSON(w, r, Response{Attendance: &a})
					return
				}
			}

			log.Error("resource not found", slog.String("id", id))
			w.WriteHeader(http.StatusNotFound)
			render.JSON(w, r, response.Error(response.NOT_FOUND, "resource not found"))
			return
		}

		q := r.URL.Query()

		if studentID := q.Get("student_id"); studentID != "" {
			snap = snap.ForStudent(studentID)
		}

		fromStr, toStr := q.Get("from"), q.Get("to")
		if fromStr != "" || toStr != "" {
			if fromStr == "" || toStr == "" {
				handlers.Invalid(w, r, log, errors.New("from and to must be given together"))
				return
			}

			from, err := models.ParseDate(fromStr)
			if err != nil {
				handlers.Invalid(w, r, log, err)
				return
			}

			to, err := models.ParseDate(toStr)
			if err != nil {
				handlers.Invalid(w, r, log, err)
				return
			}

			snap = snap.Between(from, to)
		}

		log.Info("Attendance retrieved", slog.Int("count", len(snap)))

		render.JSON(w, r, Response{
			Attendances: api.FromSnapshot(snap),
		})
	}
}
