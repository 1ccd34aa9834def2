package command

import (
	"github.com/goliatone/go-epo-ops/core"
	goerrors "github.com/goliatone/go-errors"
)

func commandDependencyError(message string) error {
	return core.NewInternalError(message)
}

func commandValidationError(field string, message string) error {
	return core.NewValidationError("command: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	})
}
