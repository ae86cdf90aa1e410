package convert

import (
	"errors"
	"fmt"

	"github.com/zeusync/scenekit/internal/core/schema"
)

var (
	ErrConversion = errors.New("conversion failed")
)

// ConversionError locates a failure inside the value being converted.
// Err is set when the failure has a cause of its own, such as a
// registry.MissingTypeError.
type ConversionError struct {
	Path     string
	Expected schema.TypeName
	Reason   string
	Err      error
}

func (e *ConversionError) Error() string {
	msg := "convert " + e.Path
	if e.Expected != "" {
		msg += fmt.Sprintf(" (expected %s)", e.Expected)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *ConversionError) Is(target error) bool { return target == ErrConversion }

func failf(path string, expected schema.TypeName, format string, args ...any) error {
	return &ConversionError{Path: path, Expected: expected, Reason: fmt.Sprintf(format, args...)}
}

func wrap(path string, expected schema.TypeName, err error) error {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return err
	}
	return &ConversionError{Path: path, Expected: expected, Err: err}
}
