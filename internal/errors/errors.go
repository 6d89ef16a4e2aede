// Package errors defines the failure taxonomy of the captcha pipeline.
//
// Every failure the solver can report carries an ErrorCode so that callers
// (the CLI, the MCP server) can react to the kind of failure without parsing
// messages. None of these failures are retried: the pipeline is
// deterministic and would fail the same way again.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies the kind of failure.
type ErrorCode string

const (
	// Input errors
	ErrorUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	ErrorFormat            ErrorCode = "FORMAT"
	ErrorDecode            ErrorCode = "DECODE"

	// Recognition errors
	ErrorSegmentation ErrorCode = "SEGMENTATION"

	// Template bank errors
	ErrorModelLoad ErrorCode = "MODEL_LOAD"
)

// CaptchaError is a structured pipeline failure.
type CaptchaError struct {
	Code    ErrorCode
	Message string
	Path    string
	Details map[string]interface{}
	Cause   error
}

func (e *CaptchaError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Path)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *CaptchaError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CaptchaError with the same code, so that
// errors.Is(err, &CaptchaError{Code: ErrorFormat}) matches any format error.
func (e *CaptchaError) Is(target error) bool {
	t, ok := target.(*CaptchaError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first CaptchaError in err's chain, or the
// empty code if there is none.
func CodeOf(err error) ErrorCode {
	var ce *CaptchaError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// Factory functions

func NewUnsupportedFormatError(path string, ext string) *CaptchaError {
	return &CaptchaError{
		Code:    ErrorUnsupportedFormat,
		Message: fmt.Sprintf("unrecognized raster format %q", ext),
		Path:    path,
		Details: map[string]interface{}{
			"extension": ext,
		},
	}
}

func NewFormatError(path string, format string, args ...interface{}) *CaptchaError {
	return &CaptchaError{
		Code:    ErrorFormat,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

func NewDecodeError(path string, cause error) *CaptchaError {
	return &CaptchaError{
		Code:    ErrorDecode,
		Message: "failed to decode image",
		Path:    path,
		Cause:   cause,
	}
}

func NewSegmentationError(rowRuns, colRuns, wantCols int) *CaptchaError {
	return &CaptchaError{
		Code: ErrorSegmentation,
		Message: fmt.Sprintf("found %d row runs and %d column runs, need at least 1 and %d",
			rowRuns, colRuns, wantCols),
		Details: map[string]interface{}{
			"row_runs":    rowRuns,
			"column_runs": colRuns,
			"want_glyphs": wantCols,
		},
	}
}

func NewModelLoadError(path string, message string, cause error) *CaptchaError {
	return &CaptchaError{
		Code:    ErrorModelLoad,
		Message: message,
		Path:    path,
		Cause:   cause,
	}
}

// ToMap converts the error to a flat map, used for MCP error payloads.
func (e *CaptchaError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
	}
	if e.Path != "" {
		result["path"] = e.Path
	}
	for k, v := range e.Details {
		result[k] = v
	}
	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}
	return result
}
