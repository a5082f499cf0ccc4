package circuit

import (
	"errors"
	"fmt"
)

// ErrCodeParse is the error code carried by every ParseError.
const ErrCodeParse = "PARSE_ERROR"

// ParseError reports malformed textual circuit input.
//
// Token is the offending keyword or numeric field exactly as it appeared in
// the input. Line is 1-based.
type ParseError struct {
	Line    int
	Token   string
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: line %d: %s: %q", ErrCodeParse, e.Line, e.Message, e.Token)
	}
	return fmt.Sprintf("%s: line %d: %s", ErrCodeParse, e.Line, e.Message)
}

// IsParseError returns true if err is or wraps a ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
