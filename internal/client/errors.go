package client

import (
	"errors"
	"fmt"
	"strings"
)

// BadRequestError is a transport-level rejection of the request. It is
// fatal to the turn and reported verbatim, never retried or reflected.
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("bad request: %s", e.Message)
}

// ContextWindowError means the input overflowed the model's context window.
type ContextWindowError struct {
	Message string
}

func (e *ContextWindowError) Error() string {
	return fmt.Sprintf("context window exceeded: %s", e.Message)
}

// IsBadRequest reports whether err is a transport bad-request.
func IsBadRequest(err error) bool {
	var br *BadRequestError
	return errors.As(err, &br)
}

// IsContextWindowExceeded reports whether err is a context-window overflow.
func IsContextWindowExceeded(err error) bool {
	var cw *ContextWindowError
	return errors.As(err, &cw)
}

// classifyError maps an untyped transport error onto the taxonomy. String
// matching is a fallback for errors the SDK does not type.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "context window") ||
		strings.Contains(msg, "input token count") ||
		strings.Contains(msg, "exceeds the maximum"):
		return &ContextWindowError{Message: err.Error()}
	case strings.Contains(msg, "400") || strings.Contains(msg, "invalid argument"):
		return &BadRequestError{Message: err.Error()}
	default:
		return err
	}
}
