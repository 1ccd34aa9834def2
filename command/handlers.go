package command

import (
	"context"
	"strings"
	"time"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-epo-ops/core"
)

// TokenRefresher is satisfied by auth.TokenManager. A failed ForceRefresh must
// leave the current token in place.
type TokenRefresher interface {
	ForceRefresh(ctx context.Context) (core.AccessToken, error)
}

// ThrottleResetter is satisfied by ratelimit.AdaptivePolicy.
type ThrottleResetter interface {
	Reset(ctx context.Context, key core.RateLimitKey) error
}

// TokenStatus describes a freshly acquired token without exposing it.
type TokenStatus struct {
	TokenType string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type RefreshTokenCommand struct {
	tokens TokenRefresher
}

func NewRefreshTokenCommand(tokens TokenRefresher) *RefreshTokenCommand {
	return &RefreshTokenCommand{tokens: tokens}
}

func (c *RefreshTokenCommand) Execute(ctx context.Context, _ RefreshTokenMessage) error {
	if c == nil || c.tokens == nil {
		return commandDependencyError("command: token refresher is required")
	}
	token, err := c.tokens.ForceRefresh(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, TokenStatus{
		TokenType: token.TokenType,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt(),
	})
	return nil
}

type ResetThrottleCommand struct {
	resetter ThrottleResetter
	clientID string
}

// NewResetThrottleCommand resets buckets recorded under clientID, the OPS
// consumer key the client authenticates with.
func NewResetThrottleCommand(resetter ThrottleResetter, clientID string) *ResetThrottleCommand {
	return &ResetThrottleCommand{resetter: resetter, clientID: strings.TrimSpace(clientID)}
}

func (c *ResetThrottleCommand) Execute(ctx context.Context, msg ResetThrottleMessage) error {
	if c == nil || c.resetter == nil {
		return commandDependencyError("command: throttle resetter is required")
	}
	return c.resetter.Reset(ctx, core.RateLimitKey{
		ClientID: c.clientID,
		Service:  strings.ToLower(strings.TrimSpace(msg.Service)),
	})
}

// Commands groups the operational commands of a client.
type Commands struct {
	RefreshToken  *RefreshTokenCommand
	ResetThrottle *ResetThrottleCommand
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
