package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/CasualC-er/ebupTTS/internal/encode"
	"github.com/CasualC-er/ebupTTS/internal/synth"
)

// Code classifies a conversion failure for reporting.
type Code string

const (
	// CodeInvalidInput indicates the input had no usable text
	CodeInvalidInput Code = "INVALID_INPUT"

	// CodeBackendUnavailable indicates a required external tool is not
	// installed
	CodeBackendUnavailable Code = "BACKEND_UNAVAILABLE"

	// CodeBackendTransient indicates a synthesis attempt failed in a
	// retryable way
	CodeBackendTransient Code = "BACKEND_TRANSIENT"

	// CodeBackendExhausted indicates every engine failed on a unit
	CodeBackendExhausted Code = "BACKEND_EXHAUSTED"

	// CodeEncodeFailure indicates the encoding stage failed
	CodeEncodeFailure Code = "ENCODE_FAILURE"

	// CodeCanceled indicates the run was canceled
	CodeCanceled Code = "CANCELED"
)

// ConvertError is a classified conversion failure. Unit is the index
// of the unit being processed when the failure occurred, or -1 when
// the failure is not tied to one unit.
type ConvertError struct {
	Code    Code
	Message string
	Unit    int
	Cause   error
}

// Error implements the error interface
func (e *ConvertError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Unit >= 0 {
		msg = fmt.Sprintf("%s: unit %d: %s", e.Code, e.Unit, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error
func (e *ConvertError) Unwrap() error {
	return e.Cause
}

// Remedy returns an actionable hint for the failure class, or an
// empty string when there is nothing for the user to do.
func (e *ConvertError) Remedy() string {
	switch e.Code {
	case CodeInvalidInput:
		return "check that the input is a readable EPUB containing text"
	case CodeBackendUnavailable:
		var unavailable *encode.UnavailableError
		if errors.As(e.Cause, &unavailable) {
			return unavailable.Guidance
		}
		return "install a synthesis engine: espeak-ng (preferred), espeak, or festival"
	case CodeBackendTransient:
		return "retry the conversion"
	case CodeBackendExhausted:
		return "run the doctor command to check engine health, then retry"
	case CodeEncodeFailure:
		return "check free disk space and output directory permissions"
	default:
		return ""
	}
}

// IsFatal reports whether a failure class aborts the run. Transient
// failures are retried inside the scheduler; every class that escapes
// it is fatal.
func IsFatal(code Code) bool {
	return code != CodeBackendTransient
}

// newError builds a ConvertError not tied to a unit.
func newError(code Code, message string, cause error) *ConvertError {
	return &ConvertError{Code: code, Message: message, Unit: -1, Cause: cause}
}

// classifySynthesis maps a synthesis-stage failure onto the taxonomy.
func classifySynthesis(err error, unit int) *ConvertError {
	ce := &ConvertError{Unit: unit, Cause: err}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		ce.Code = CodeCanceled
		ce.Message = "synthesis canceled"
		ce.Unit = -1
	case errors.Is(err, synth.ErrNoUsableEngine):
		ce.Code = CodeBackendUnavailable
		ce.Message = "no synthesis engine available"
		ce.Unit = -1
	case errors.Is(err, synth.ErrEnginesExhausted):
		ce.Code = CodeBackendExhausted
		ce.Message = "every synthesis engine failed"
	default:
		ce.Code = CodeBackendExhausted
		ce.Message = "synthesis failed"
	}
	return ce
}

// classifyEncode maps an encoding-stage failure onto the taxonomy.
func classifyEncode(err error) *ConvertError {
	var unavailable *encode.UnavailableError
	if errors.As(err, &unavailable) {
		return newError(CodeBackendUnavailable, unavailable.Error(), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return newError(CodeCanceled, "encoding canceled", err)
	}
	return newError(CodeEncodeFailure, "writing artifact failed", err)
}
