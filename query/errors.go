package query

import (
	"github.com/goliatone/go-epo-ops/core"
)

func queryDependencyError(message string) error {
	return core.NewInternalError(message)
}
