package stats

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"attendance-ledger/internal/http-server/handlers"
	"attendance-ledger/internal/models"
	"attendance-ledger/internal/stats"
	"attendance-ledger/pkg/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type SnapshotProvider interface {
	List() models.Snapshot
}

type DateStats struct {
	Date string `json:"date"`
	stats.Counts
	Rate float64 `json:"rate"`
}

type StudentStats struct {
	StudentID string `json:"student_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	stats.RangeStats
	Rate float64 `json:"rate"`
}

type Response struct {
	response.Response
	Date    *DateStats    `json:"date_stats,omitempty"`
	Student *StudentStats `json:"student_stats,omitempty"`
}

// New serves per-date statistics, or one student's statistics over a range
// when student_id is given.
func New(log *slog.Logger, provider SnapshotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.stats.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()
		snap := provider.List()

		if studentID := q.Get("student_id"); studentID != "" {
			from, err := models.ParseDate(q.Get("from"))
			if err != nil {
				handlers.Invalid(w, r, log, err)
				return
			}

			to, err := models.ParseDate(q.Get("to"))
			if err != nil {
				handlers.Invalid(w, r, log, err)
				return
			}

			if to.Before(from) {
				handlers.Invalid(w, r, log, errors.New("to is before from"))
				return
			}

			rs := stats.StatsForRange(snap, studentID, from, to)

			render.JSON(w, r, Response{Student: &StudentStats{
				StudentID:  studentID,
				From:       from.Format(models.DateLayout),
				To:         to.Format(models.DateLayout),
				RangeStats: rs,
				Rate:       stats.AttendanceRate(rs.Counts()),
			}})
			return
		}

		date := models.Day(time.Now())
		if s := q.Get("date"); s != "" {
			d, err := models.ParseDate(s)
			if err != nil {
				handlers.Invalid(w, r, log, err)
				return
			}
			date = d
		}

		c := stats.StatsForDate(snap, date)

		log.Debug("Date stats computed", slog.Int("total", c.Total))

		render.JSON(w, r, Response{Date: &DateStats{
			Date:   date.Format(models.DateLayout),
			Counts: c,
			Rate:   stats.AttendanceRate(c),
		}})
	}
}

type SeriesResponse struct {
	response.Response
	Window int                 `json:"window"`
	Series []stats.PeriodEntry `json:"series"`
}

// NewSeries serves the trailing per-day series for window=7 or window=30.
func NewSeries(log *slog.Logger, provider SnapshotProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.stats.NewSeries"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		window := stats.WeeklyWindow
		if s := r.URL.Query().Get("window"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || (n != stats.WeeklyWindow && n != stats.MonthlyWindow) {
				handlers.Invalid(w, r, log, errors.New("window must be 7 or 30"))
				return
			}
			window = n
		}

		series := stats.PeriodSeries(provider.List(), window, time.Now())

		render.JSON(w, r, SeriesResponse{Window: window, Series: series})
	}
}
