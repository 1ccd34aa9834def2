package transport

import (
	"github.com/goliatone/go-epo-ops/core"
	goerrors "github.com/goliatone/go-errors"
)

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// transportTextCode maps adapter failures onto the client error kinds: a
// request that never left is a local fault, one that left and got no usable
// answer is a network fault.
func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryExternal:
		return core.ErrorTextNetwork
	default:
		return core.ErrorTextInternal
	}
}
