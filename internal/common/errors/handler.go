package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"time"
)

// ErrorHandler is the single top-level catch: it normalizes, logs and
// renders a user-facing failure line.
type ErrorHandler struct {
	logger Logger
	out    io.Writer
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger, out io.Writer) *ErrorHandler {
	return &ErrorHandler{logger: logger, out: out}
}

// Handle reports err and returns the process exit code to use.
func (h *ErrorHandler) Handle(operation string, err error) int {
	if err == nil {
		return 0
	}
	stdErr := Normalize(err)
	h.logError(operation, stdErr)
	fmt.Fprintf(h.out, "%s failed: %s\n", operation, stdErr.Message)
	if stdErr.Code == ErrCodeUnauthorized {
		fmt.Fprintln(h.out, "Please log in again.")
	}
	return 1
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   err.Error(),
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func (h *ErrorHandler) logError(operation string, stdErr *StandardError) {
	if h.logger == nil {
		return
	}
	h.logger.Error("Operation failed", map[string]interface{}{
		"operation":     operation,
		"errorCode":     string(stdErr.Code),
		"message":       stdErr.Message,
		"details":       stdErr.Details,
		"retryable":     stdErr.Retryable,
		"errorCategory": GetErrorCategory(stdErr.Code),
		"metadata":      stdErr.Metadata,
	})
}
