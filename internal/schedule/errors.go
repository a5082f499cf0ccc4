package schedule

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes scheduling errors.
type ErrorCode string

const (
	// ErrCodeInvalidParams indicates a parameter combination the geometry
	// cannot schedule.
	ErrCodeInvalidParams ErrorCode = "INVALID_PARAMS"

	// ErrCodeMissingDepth indicates a rotation without a repeat bound under a
	// corrected policy.
	ErrCodeMissingDepth ErrorCode = "MISSING_DEPTH"

	// ErrCodeUnsupportedOp indicates an instance kind no policy can place.
	ErrCodeUnsupportedOp ErrorCode = "UNSUPPORTED_OP"
)

// Error is returned when a run cannot start. Qubit and Pos locate the
// offending instance; both are -1 for parameter errors.
type Error struct {
	Code    ErrorCode
	Message string
	Qubit   int
	Pos     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Qubit >= 0 {
		return fmt.Sprintf("%s: %s (qubit=%d, pos=%d)", e.Code, e.Message, e.Qubit, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func paramError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidParams, Message: fmt.Sprintf(format, args...), Qubit: -1, Pos: -1}
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsInvalidParams returns true if err is an INVALID_PARAMS error.
func IsInvalidParams(err error) bool { return hasCode(err, ErrCodeInvalidParams) }

// IsMissingDepth returns true if err is a MISSING_DEPTH error.
func IsMissingDepth(err error) bool { return hasCode(err, ErrCodeMissingDepth) }

// IsUnsupportedOp returns true if err is an UNSUPPORTED_OP error.
func IsUnsupportedOp(err error) bool { return hasCode(err, ErrCodeUnsupportedOp) }
