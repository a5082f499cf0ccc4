package reliability

import (
	"errors"
	"fmt"
)

// ViolationCode categorizes contract violations.
type ViolationCode string

const (
	// ErrCodeMissingTerminalCorrection indicates a tape that does not end in
	// a correction marker.
	ErrCodeMissingTerminalCorrection ViolationCode = "MISSING_TERMINAL_CORRECTION"

	// ErrCodeProbabilityOverflow indicates an accumulated error probability
	// above 1 at a correction marker.
	ErrCodeProbabilityOverflow ViolationCode = "ERROR_PROBABILITY_OVERFLOW"

	// ErrCodeInvalidCode indicates unusable code parameters.
	ErrCodeInvalidCode ViolationCode = "INVALID_CODE"

	// ErrCodeInvalidRate indicates a baseline error rate outside [0, 1] or
	// unusable error ratios.
	ErrCodeInvalidRate ViolationCode = "INVALID_RATE"
)

// ContractViolation reports input the model refuses to evaluate. Qubit and
// Pos locate the offending schedule entry and are -1 when not applicable.
type ContractViolation struct {
	Code    ViolationCode
	Qubit   int
	Pos     int
	Message string
}

// Error implements the error interface.
func (e *ContractViolation) Error() string {
	if e.Qubit >= 0 {
		return fmt.Sprintf("%s: %s (qubit=%d, pos=%d)", e.Code, e.Message, e.Qubit, e.Pos)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsContractViolation returns true if err is or wraps a ContractViolation.
func IsContractViolation(err error) bool {
	var cv *ContractViolation
	return errors.As(err, &cv)
}

// ViolationCodeOf returns the code of a wrapped ContractViolation, or "".
func ViolationCodeOf(err error) ViolationCode {
	var cv *ContractViolation
	if errors.As(err, &cv) {
		return cv.Code
	}
	return ""
}
