package portfolio

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable identifier of a request-level failure.
type ErrorCode string

const (
	// ErrNoValidData means no usable price series and no cash.
	ErrNoValidData ErrorCode = "NO_VALID_DATA"
	// ErrAllItemsFailed means every per-item strategy backtest failed.
	ErrAllItemsFailed ErrorCode = "ALL_ITEMS_FAILED"
	// ErrInvalidRequest means the request itself is malformed.
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
)

// Error is a terminal failure of one backtest request.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the error code of err, or "" when err is not a portfolio error.
func CodeOf(err error) ErrorCode {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// ErrorResult renders a portfolio error into the output contract.
func ErrorResult(runID string, err *Error) *Result {
	return &Result{
		Status: StatusError,
		RunID:  runID,
		Error:  &ErrorInfo{Code: err.Code, Message: err.Message},
	}
}
