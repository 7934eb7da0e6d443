package update

import (
	"context"
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
	"github.com/go-playground/validator/v10"
)

type AttendanceUpdater interface {
	Update(ctx context.Context, id string, p models.Patch) (models.AttendanceRecord, error)
}

type Request struct {
	api.AttendanceUpdateRequest
}

type Response struct {
	response.Response
	Attendance *api.AttendanceResponse `json:"attendance,omitempty"`
}

func New(log *slog.Logger, updater AttendanceUpdater) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.update.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			handlers.Invalid(w, r, log, err)
			return
		}

		if err := validate.Struct(req.AttendanceUpdateRequest); err != nil {
			handlers.Invalid(w, r, log, err)
			return
		}

		patch := models.Patch{
			CheckIn:  req.CheckIn,
			CheckOut: req.CheckOut,
			Notes:    req.Notes,
		}
		if req.Status != nil {
			s := models.Status(*req.Status)
			patch.Status = &s
		}

		if patch.Empty() {
			handlers.Invalid(w, r, log, errors.New("nothing to update"))
			return
		}

		rec, err := updater.Update(r.Context(), id, patch)
		if err != nil {
			handlers.StoreError(w, r, log, err)
			return
		}

		log.Info("Attendance updated", slog.String("id", rec.ID))

		a := api.FromRecord(rec)
		render.JSON(w, r, Response{Attendance: &a})
	}
}
