package storage

import (
	"errors"
	"fmt"
)

// Kind classifies a failure reported by a store. Connection failures are
// worth retrying, the rest are not.
type Kind int

const (
	KindUnclassified Kind = iota
	KindConnection
	KindDuplicate
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindDuplicate:
		return "duplicate"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	default:
		return "unclassified"
	}
}

var (
	ErrNotFound   = errors.New("record not found")
	ErrDuplicate  = errors.New("record already exists")
	ErrConnection = errors.New("connection lost")
	ErrValidation = errors.New("invalid record")
)

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind Kind, err error) error {
	return &Error{Kind: kind, Err: err}
}

func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of the outermost tagged error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnclassified
	}

	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, ErrValidation):
		return KindValidation
	}

	return KindUnclassified
}

func IsRetryable(err error) bool {
	return KindOf(err) == KindConnection
}

// UserMessage returns the text shown to a person when a single write fails.
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindConnection:
		return "The connection was lost while saving. Please check your network and try again."
	case KindDuplicate:
		return "An attendance record already exists for this student on this date. Check the existing record before trying again."
	case KindValidation:
		return "Please select a program, a date and a status before saving."
	case KindNotFound:
		return "The attendance record no longer exists."
	default:
		return "Failed to save attendance. Please try again."
	}
}

// BulkMessage summarises the outcome of a bulk write.
func BulkMessage(succeeded, failed int) string {
	if failed == 0 {
		return fmt.Sprintf("%d records saved", succeeded)
	}
	return fmt.Sprintf("%d records failed to save", failed)
}
