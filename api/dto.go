package api

import (
	"time"

	"attendance-ledger/internal/models"
)

type AttendanceRequest struct {
	StudentID string  `json:"student_id" validate:"required"`
	Date      string  `json:"date" validate:"required,datetime=2006-01-02"`
	Status    string  `json:"status" validate:"required,oneof=present absent late"`
	CheckIn   *string `json:"check_in,omitempty" validate:"omitempty,datetime=15:04"`
	CheckOut  *string `json:"check_out,omitempty" validate:"omitempty,datetime=15:04"`
	Notes     *string `json:"notes,omitempty"`
}

type AttendanceUpdateRequest struct {
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=present absent late"`
	CheckIn  *string `json:"check_in,omitempty" validate:"omitempty,datetime=15:04"`
	CheckOut *string `json:"check_out,omitempty" validate:"omitempty,datetime=15:04"`
	Notes    *string `json:"notes,omitempty"`
}

type AttendanceResponse struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Date      string    `json:"date"`
	Status    string    `json:"status"`
	CheckIn   *string   `json:"check_in,omitempty"`
	CheckOut  *string   `json:"check_out,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func FromRecord(r models.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		ID:        r.ID,
		StudentID: r.StudentID,
		Date:      r.Date.Format(models.DateLayout),
		Status:    string(r.Status),
		CheckIn:   r.CheckIn,
		CheckOut:  r.CheckOut,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
	}
}

func FromSnapshot(s models.Snapshot) []AttendanceResponse {
	out := make([]AttendanceResponse, 0, len(s))
	for _, r := range s {
		out = append(out, FromRecord(r))
	}
	return out
}

type BulkTemplate struct {
	Status   string  `json:"status" validate:"required,oneof=present absent late"`
	CheckIn  *string `json:"check_in,omitempty" validate:"omitempty,datetime=15:04"`
	CheckOut *string `json:"check_out,omitempty" validate:"omitempty,datetime=15:04"`
	Notes    *string `json:"notes,omitempty"`
}

type BulkOverride struct {
	Status   string  `json:"status,omitempty" validate:"omitempty,oneof=present absent late"`
	CheckIn  *string `json:"check_in,omitempty" validate:"omitempty,datetime=15:04"`
	CheckOut *string `json:"check_out,omitempty" validate:"omitempty,datetime=15:04"`
	Notes    *string `json:"notes,omitempty"`
}

type BulkRequest struct {
	Date       string                  `json:"date" validate:"required,datetime=2006-01-02"`
	StudentIDs []string                `json:"student_ids" validate:"required,min=1,dive,required"`
	Template   BulkTemplate            `json:"template"`
	Overrides  map[string]BulkOverride `json:"overrides,omitempty" validate:"omitempty,dive"`
}

type BulkFailure struct {
	StudentID string `json:"student_id"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
}

type BulkResponse struct {
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Skipped   []string             `json:"skipped,omitempty"`
	Failures  []BulkFailure        `json:"failures,omitempty"`
	Records   []AttendanceResponse `json:"records,omitempty"`
	Message   string               `json:"message"`
}
