package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-epo-ops/auth"
	"github.com/goliatone/go-epo-ops/ratelimit"
)

var (
	_ gocmd.Commander[RefreshTokenMessage]  = (*RefreshTokenCommand)(nil)
	_ gocmd.Commander[ResetThrottleMessage] = (*ResetThrottleCommand)(nil)

	_ TokenRefresher   = (*auth.TokenManager)(nil)
	_ ThrottleResetter = (*ratelimit.AdaptivePolicy)(nil)
	_ gocmd.Message    = RefreshTokenMessage{}
)
