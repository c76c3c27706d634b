// Package waerrors provides the waPC protocol's error taxonomy. Every
// exported type implements the standard error interface and, where it wraps
// a cause, Unwrap() error, so callers can use errors.As/errors.Is. Each also
// implements DetailedError, converting itself to a structured ErrorDetail
// for embedders that want a machine-readable error category rather than a
// formatted message.
package waerrors

import (
	"errors"
	"fmt"
)

// ErrorDetail is a structured, JSON-serializable description of a failure:
// a category (Type), an optional machine-readable Code, and the formatted
// Message, suitable for logging or for surfacing to a caller that wants to
// branch on error category instead of parsing error strings.
type ErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s [%s]", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// DetailedError is implemented by every error type in this package.
type DetailedError interface {
	error
	ToErrorDetail() *ErrorDetail
}

// ToErrorDetail converts any error into a structured ErrorDetail. Errors
// that implement DetailedError are asked to describe themselves; anything
// else is reported with Type "internal".
func ToErrorDetail(err error) *ErrorDetail {
	if err == nil {
		return nil
	}
	var de DetailedError
	if errors.As(err, &de) {
		return de.ToErrorDetail()
	}
	return &ErrorDetail{Message: err.Error(), Type: "internal"}
}
