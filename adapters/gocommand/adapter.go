package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	opscommand "github.com/goliatone/go-epo-ops/command"
	"github.com/goliatone/go-epo-ops/core"
	"github.com/goliatone/go-epo-ops/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry command.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

// Query sends msg through the dispatcher to whichever querier subscribed to
// its type.
func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

func RegisterAndSubscribeQuery[T any, R any](
	adapter *RegistryAdapter,
	qry command.Querier[T, R],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	subscription := SubscribeQuery(qry, runnerOpts...)
	if err := adapter.RegisterQuery(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// RegisterQueries subscribes every client querier. On failure the ones
// already subscribed are removed again.
func RegisterQueries(
	adapter *RegistryAdapter,
	queries query.Queries,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	subscriptions := make([]commanddispatcher.Subscription, 0, 8)
	add := func(sub commanddispatcher.Subscription, err error) error {
		if err != nil {
			Unsubscribe(subscriptions)
			return err
		}
		subscriptions = append(subscriptions, sub)
		return nil
	}

	if err := add(RegisterAndSubscribeQuery[query.SearchPatentsMessage, core.SearchResponse](
		adapter, queries.SearchPatents, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[query.GetBibliographicDataMessage, core.BibliographicData](
		adapter, queries.GetBibliographicData, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[query.GetClaimsMessage, core.Claims](
		adapter, queries.GetClaims, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[query.GetFamilyMessage, []core.FamilyMember](
		adapter, queries.GetFamily, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[query.GetLegalStatusMessage, []core.LegalStatus](
		adapter, queries.GetLegalStatus, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[query.GetClassificationMessage, core.ClassificationResponse](
		adapter, queries.GetClassification, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[query.SearchClassificationMessage, core.ClassificationResponse](
		adapter, queries.SearchClassification, runnerOpts...)); err != nil {
		return nil, err
	}
	if err := add(RegisterAndSubscribeQuery[query.ConvertNumberMessage, core.NumberConversionResponse](
		adapter, queries.ConvertNumber, runnerOpts...)); err != nil {
		return nil, err
	}
	return subscriptions, nil
}

// RegisterCommands subscribes the operational commands that are set. Nil
// commands are skipped.
func RegisterCommands(
	adapter *RegistryAdapter,
	commands opscommand.Commands,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	subscriptions := make([]commanddispatcher.Subscription, 0, 2)
	if commands.RefreshToken != nil {
		sub, err := RegisterAndSubscribe[opscommand.RefreshTokenMessage](adapter, commands.RefreshToken, runnerOpts...)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, sub)
	}
	if commands.ResetThrottle != nil {
		sub, err := RegisterAndSubscribe[opscommand.ResetThrottleMessage](adapter, commands.ResetThrottle, runnerOpts...)
		if err != nil {
			Unsubscribe(subscriptions)
			return nil, err
		}
		subscriptions = append(subscriptions, sub)
	}
	return subscriptions, nil
}

func Unsubscribe(subscriptions []commanddispatcher.Subscription) {
	for _, sub := range subscriptions {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
}
