package response

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Response struct {
	ResponseError `json:"error,omitzero"`
}

type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error Codes
type ErrCode string

var (
	FAILED_REQUEST  ErrCode = "REQUEST_FAILED"
	BAD_REQUEST     ErrCode = "FAILED_TO_DECODE"
	VALIDATION      ErrCode = "VALIDATION_FAILED"
	NOT_FOUND       ErrCode = "NOT_FOUND"
	CONFLICT        ErrCode = "CONFLICT"
	CONNECTION_LOST ErrCode = "CONNECTION_LOST"
	PARTIAL_FAILURE ErrCode = "PARTIAL_FAILURE"
)

func Error(code ErrCode, msg string) Response {
	return Response{
		ResponseError: ResponseError{
			Code:    string(code),
			Message: msg,
		},
	}
}

func ValidationError(errs validator.ValidationErrors) Response {
	var errMsg []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errMsg = append(errMsg, fmt.Sprintf("field '%s' is required", err.Field()))
		case "oneof":
			errMsg = append(errMsg, fmt.Sprintf("field '%s' must be one of: %s", err.Field(), err.Param()))
		case "datetime":
			errMsg = append(errMsg, fmt.Sprintf("field '%s' must match %s", err.Field(), err.Param()))
		case "min":
			errMsg = append(errMsg, fmt.Sprintf("field '%s' must have at least %s item(s)", err.Field(), err.Param()))
		default:
			errMsg = append(errMsg, fmt.Sprintf("field '%s' is invalid", err.Field()))
		}
	}

	return Error(VALIDATION, strings.Join(errMsg, ", "))
}
