package registry

import (
	"errors"
	"fmt"

	"github.com/zeusync/scenekit/internal/core/schema"
)

var (
	ErrMissingTypeRegistry = errors.New("missing type registry")
	ErrSchemaDrift         = errors.New("schema drift")
	ErrNameMismatch        = errors.New("descriptor name does not match registered name")
	ErrNotConstructible    = errors.New("type has no constructors")
	ErrTypeMismatch        = errors.New("patch type does not match host type")
	ErrUnsupportedGoType   = errors.New("unsupported go type")
	ErrTooDeep             = errors.New("type nesting too deep")
)

// MissingTypeError names a type that had to resolve and did not.
type MissingTypeError struct {
	Name schema.TypeName
}

// Missing builds the error callers return when Resolve came back empty.
func Missing(name schema.TypeName) error {
	return &MissingTypeError{Name: name}
}

func (e *MissingTypeError) Error() string {
	return fmt.Sprintf("missing type registry: %q", string(e.Name))
}

func (e *MissingTypeError) Is(target error) bool {
	return target == ErrMissingTypeRegistry
}
