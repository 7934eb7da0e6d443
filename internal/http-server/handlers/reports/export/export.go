package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"attendance-ledger/internal/archive"
	"attendance-ledger/internal/export"
	"attendance-ledger/internal/http-server/handlers"
	"attendance-ledger/internal/models"
	"attendance-ledger/internal/stats"
	"attendance-ledger/pkg/response"
	"attendance-ledger/pkg/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type SnapshotProvider interface {
	List() models.Snapshot
}

type ReportExporter interface {
	Export(ctx context.Context, records models.Snapshot, counts stats.Counts, filter export.Filter, layout export.Layout, format export.Format) (export.Artifact, error)
}

type Directory interface {
	StudentProfiles(ctx context.Context, ids []string) (map[string]models.StudentProfile, error)
}

// Archiver keeps a copy of each generated report. It may be nil.
type Archiver interface {
	Store(ctx context.Context, key, contentType string, data []byte) error
}

type Deps struct {
	Provider SnapshotProvider
	Exporter ReportExporter
	Dir      Directory
	Archiver Archiver
}

func New(log *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.reports.export.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		q := r.URL.Query()
		now := time.Now()

		format, err := export.ParseFormat(q.Get("format"))
		if err != nil {
			handlers.Invalid(w, r, log, err)
			return
		}

		filter := export.Filter{
			ViewMode: q.Get("view"),
			Program:  q.Get("program"),
			Class:    q.Get("class"),
		}
		if filter.ViewMode == "" {
			filter.ViewMode = "daily"
		}

		snap := deps.Provider.List()

		switch window := stats.WindowFor(filter.ViewMode); {
		case filter.ViewMode == "daily":
			date := models.Day(now)
			if s := q.Get("date"); s != "" {
				if date, err = models.ParseDate(s); err != nil {
					handlers.Invalid(w, r, log, err)
					return
				}
			}
			filter.Date = date.Format(models.DateLayout)
			snap = snap.OnDate(date)
		case window > 0:
			from := models.Day(now).AddDate(0, 0, -(window - 1))
			filter.Date = fmt.Sprintf("%s to %s", from.Format(models.DateLayout), now.Format(models.DateLayout))
			snap = snap.Between(from, now)
		default:
			handlers.Invalid(w, r, log, errors.New("view must be daily, weekly or monthly"))
			return
		}

		if filter.Program != "" || filter.Class != "" {
			snap, err = filterByEnrollment(r.Context(), deps.Dir, snap, filter.Program, filter.Class)
			if err != nil {
				log.Error("Failed to resolve students", sl.Err(err))
				w.WriteHeader(http.StatusInternalServerError)
				render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to export attendance"))
				return
			}
		}

		art, err := deps.Exporter.Export(r.Context(), snap, stats.Count(snap), filter, export.LayoutFor(filter.ViewMode), format)
		if err != nil {
			log.Error("Failed to export attendance", sl.Err(err))
			w.WriteHeader(http.StatusInternalServerError)
			render.JSON(w, r, response.Error(response.FAILED_REQUEST, "failed to export attendance"))
			return
		}

		if deps.Archiver != nil {
			key := archive.Key(art.Filename, now)
			if err := deps.Archiver.Store(r.Context(), key, art.ContentType, art.Data); err != nil {
				log.Warn("Failed to archive report", slog.String("key", key), sl.Err(err))
			} else {
				log.Info("Report archived", slog.String("key", key))
			}
		}

		log.Info("Attendance exported",
			slog.String("filename", art.Filename),
			slog.Int("records", len(snap)),
		)

		w.Header().Set("Content-Type", art.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, art.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(art.Data)
	}
}

func filterByEnrollment(ctx context.Context, dir Directory, snap models.Snapshot, program, class string) (models.Snapshot, error) {
	if dir == nil || len(snap) == 0 {
		return nil, nil
	}

	profiles, err := dir.StudentProfiles(ctx, snap.StudentIDs())
	if err != nil {
		return nil, err
	}

	var out models.Snapshot
	for _, rec := range snap {
		p, ok := profiles[rec.StudentID]
		if !ok {
			continue
		}
		if program != "" && p.ProgramName != program {
			continue
		}
		if class != "" && p.ClassName != class {
			continue
		}
		out = append(out, rec)
	}

	return out, nil
}
