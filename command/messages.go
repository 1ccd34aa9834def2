package command

import (
	"strings"

	"github.com/goliatone/go-epo-ops/core"
)

const (
	TypeRefreshToken  = "ops.command.token.refresh"
	TypeResetThrottle = "ops.command.throttle.reset"
)

var throttleServices = []string{
	core.ServiceSearch,
	core.ServiceRetrieval,
	core.ServiceInpadoc,
	core.ServiceOther,
}

// RefreshTokenMessage drops the cached access token and acquires a new one.
type RefreshTokenMessage struct{}

func (RefreshTokenMessage) Type() string { return TypeRefreshToken }

func (RefreshTokenMessage) Validate() error { return nil }

// ResetThrottleMessage clears the throttle window recorded for one OPS
// service bucket.
type ResetThrottleMessage struct {
	Service string
}

func (ResetThrottleMessage) Type() string { return TypeResetThrottle }

func (m ResetThrottleMessage) Validate() error {
	service := strings.ToLower(strings.TrimSpace(m.Service))
	if service == "" {
		return commandValidationError("service", "is required")
	}
	for _, candidate := range throttleServices {
		if service == candidate {
			return nil
		}
	}
	return commandValidationError("service", "must be one of "+strings.Join(throttleServices, "|"))
}
