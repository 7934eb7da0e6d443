package create

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"attendance-ledger/api"
	"attendance-ledger/internal/http-server/handlers"
	"attendance-ledger/internal/models"
	"attendance-ledger/pkg/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type AttendanceCreator interface {
	Create(ctx context.Context, rec models.NewRecord) (models.AttendanceRecord, error)
	Find(studentID string, date time.Time) (models.AttendanceRecord, bool)
}

type Request struct {
	api.AttendanceRequest
}

type Response struct {
	response.Response
	Attendance *api.AttendanceResponse `json:"attendance,omitempty"`
}

func New(log *slog.Logger, creator AttendanceCreator) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.create.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			handlers.Invalid(w, r, log, err)
			return
		}

		log.Info("Request body decoded", slog.Any("request", req))

		if err := validate.Struct(req.AttendanceRequest); err != nil {
			handlers.Invalid(w, r, log, err)
			return
		}

		// validated above
		date, _ := models.ParseDate(req.Date)

		if existing, ok := creator.Find(req.StudentID, date); ok {
			log.Warn("attendance already recorded", slog.String("id", existing.ID))
			w.WriteHeader(http.StatusConflict)
			render.JSON(w, r, Response{
				Response:   response.Error(response.CONFLICT, "attendance already recorded for this student and date"),
				Attendance: ptr(api.FromRecord(existing)),
			})
			return
		}

		rec, err := creator.Create(r.Context(), models.NewRecord{
			StudentID: req.StudentID,
			Date:      date,
			Status:    models.Status(req.Status),
			CheckIn:   req.CheckIn,
			CheckOut:  req.CheckOut,
			Notes:     req.Notes,
		})
		if err != nil {
			handlers.StoreError(w, r, log, err)
			return
		}

		log.Info("Attendance created", slog.String("id", rec.ID))

		w.WriteHeader(http.StatusCreated)
		render.JSON(w, r, Response{Attendance: ptr(api.FromRecord(rec))})
	}
}

func ptr[T any](v T) *T {
	return &v
}
