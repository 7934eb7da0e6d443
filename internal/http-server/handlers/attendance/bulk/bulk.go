package bulk

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"attendance-ledger/api"
	bulkop "attendance-ledger/internal/bulk"
	"attendance-ledger/internal/http-server/handlers"
	"attendance-ledger/internal/models"
	"attendance-ledger/internal/storage"
	"attendance-ledger/pkg/response"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type BulkApplier interface {
	ApplyBulk(ctx context.Context, studentIDs []string, tpl bulkop.Template, date time.Time, overrides map[string]bulkop.Template) bulkop.Result
}

type AttendanceFinder interface {
	Find(studentID string, date time.Time) (models.AttendanceRecord, bool)
}

type Request struct {
	api.BulkRequest
}

type Response struct {
	response.Response
	api.BulkResponse
}

func New(log *slog.Logger, applier BulkApplier, finder AttendanceFinder) http.HandlerFunc {
	validate := validator.New()

	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.attendance.bulk.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			handlers.Invalid(w, r, log, err)
			return
		}

		if err := validate.Struct(req.BulkRequest); err != nil {
			handlers.Invalid(w, r, log, err)
			return
		}

		date, _ := models.ParseDate(req.Date)

		var pending, skipped []string
		seen := make(map[string]struct{}, len(req.StudentIDs))
		for _, id := range req.StudentIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			if _, exists := finder.Find(id, date); exists {
				skipped = append(skipped, id)
				continue
			}
			pending = append(pending, id)
		}

		overrides := make(map[string]bulkop.Template, len(req.Overrides))
		for id, o := range req.Overrides {
			overrides[id] = bulkop.Template{
				Status:   models.Status(o.Status),
				CheckIn:  o.CheckIn,
				CheckOut: o.CheckOut,
				Notes:    o.Notes,
			}
		}

		tpl := bulkop.Template{
			Status:   models.Status(req.Template.Status),
			CheckIn:  req.Template.CheckIn,
			CheckOut: req.Template.CheckOut,
			Notes:    req.Template.Notes,
		}

		res := applier.ApplyBulk(r.Context(), pending, tpl, date, overrides)

		out := api.BulkResponse{
			Succeeded: res.Succeeded,
			Failed:    res.Failed,
			Skipped:   skipped,
			Records:   make([]api.AttendanceResponse, 0, len(res.Created)),
			Message:   res.Message(),
		}
		for _, rec := range res.Created {
			out.Records = append(out.Records, api.FromRecord(rec))
		}
		for _, f := range res.Failures {
			out.Failures = append(out.Failures, api.BulkFailure{
				StudentID: f.StudentID,
				Kind:      storage.KindOf(f.Err).String(),
				Message:   storage.UserMessage(f.Err),
			})
		}

		log.Info("Bulk attendance applied",
			slog.Int("succeeded", res.Succeeded),
			slog.Int("failed", res.Failed),
			slog.Int("skipped", len(skipped)),
		)

		resp := Response{BulkResponse: out}

		switch {
		case res.Failed == 0:
			w.WriteHeader(http.StatusCreated)
		case res.Succeeded == 0:
			resp.Response = response.Error(response.FAILED_REQUEST, res.Message())
			w.WriteHeader(http.StatusBadGateway)
		default:
			resp.Response = response.Error(response.PARTIAL_FAILURE, res.Message())
			w.WriteHeader(http.StatusMultiStatus)
		}

		render.JSON(w, r, resp)
	}
}
