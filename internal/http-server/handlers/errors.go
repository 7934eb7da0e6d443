package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"attendance-ledger/internal/storage"
	"attendance-ledger/pkg/response"
	"attendance-ledger/pkg/sl"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

// StoreError writes the response for a failed ledger operation, choosing the
// status code from the error's kind.
func StoreError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	kind := storage.KindOf(err)
	log.Error("ledger operation failed", slog.String("kind", kind.String()), sl.Err(err))

	status, code := http.StatusInternalServerError, response.FAILED_REQUEST
	switch kind {
	case storage.KindValidation:
		status, code = http.StatusBadRequest, response.VALIDATION
	case storage.KindNotFound:
		status, code = http.StatusNotFound, response.NOT_FOUND
	case storage.KindDuplicate:
		status, code = http.StatusConflict, response.CONFLICT
	case storage.KindConnection:
		status, code = http.StatusServiceUnavailable, response.CONNECTION_LOST
	}

	w.WriteHeader(status)
	render.JSON(w, r, response.Error(code, storage.UserMessage(err)))
}

// Invalid writes a 400 for a request that failed decoding or validation.
func Invalid(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	log.Error("invalid request", sl.Err(err))

	w.WriteHeader(http.StatusBadRequest)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		render.JSON(w, r, response.ValidationError(verrs))
		return
	}

	render.JSON(w, r, response.Error(response.BAD_REQUEST, err.Error()))
}
