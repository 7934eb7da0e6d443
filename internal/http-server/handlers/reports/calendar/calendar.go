package calendar

import (
	"log/slog"
	"net/http"
	"time"

	"attendance-ledger/internal/http-server/handlers"
	"attendance-ledger/internal/models"
	"attendance-ledger/internal/stats"
	"attendance-ledger/pkg/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

const monthLayout = "2006-01"

type SnapshotProvider interface {
	List() models.Snapshot
}

type Response struct {
	response.Response
	Month   string            `json:"month"`
	Buckets []stats.DayBucket `json:"buckets"`
}

func New(log *slog.Logger, provider SnapshotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.calendar.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		now := time.Now()
		month := now

		if s := r.URL.Query().Get("month"); s != "" {
			m, err := time.Parse(monthLayout, s)
			if err != nil {
				handlers.Invalid(w, r, log, err)
				return
			}
			month = m
		}

		buckets := stats.CalendarBuckets(provider.List(), month, now)

		render.JSON(w, r, Response{
			Month:   month.Format(monthLayout),
			Buckets: buckets,
		})
	}
}
