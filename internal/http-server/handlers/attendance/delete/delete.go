package delete

import (
	"context"
	"log/slog"
	"net/http"

	"attendance-ledger/internal/http-server/handlers"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
)

type AttendanceDeleter interface {
	Delete(ctx context.Context, id string) error
}

func New(log *slog.Logger, deleter AttendanceDeleter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.delete.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id := chi.URLParam(r, "id")

		if err := deleter.Delete(r.Context(), id); err != nil {
			handlers.StoreError(w, r, log, err)
			return
		}

		log.Info("Attendance deleted", slog.String("id", id))

		w.WriteHeader(http.StatusNoContent)
	}
}
