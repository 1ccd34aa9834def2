package ops

import (
	"fmt"

	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	"github.com/goliatone/go-epo-ops/adapters/gocommand"
	"github.com/goliatone/go-epo-ops/command"
	"github.com/goliatone/go-epo-ops/query"
)

type Queries = query.Queries

type Commands = command.Commands

// Facade exposes the client operations as go-command queriers and the
// operational commands as commanders.
type Facade struct {
	reader   query.PatentReader
	queries  Queries
	commands Commands
}

func NewFacade(reader query.PatentReader) (*Facade, error) {
	if reader == nil {
		return nil, fmt.Errorf("ops: patent reader is required")
	}
	return &Facade{
		reader:  reader,
		queries: query.NewQueries(reader),
	}, nil
}

// NewClientFacade also derives the token refresh and throttle reset commands
// from the client's dependencies when they support them.
func NewClientFacade(client *Client) (*Facade, error) {
	if client == nil {
		return nil, fmt.Errorf("ops: client is required")
	}
	facade, err := NewFacade(client)
	if err != nil {
		return nil, err
	}
	deps := client.Dependencies()
	if tokens, ok := deps.TokenSource.(command.TokenRefresher); ok {
		facade.commands.RefreshToken = command.NewRefreshTokenCommand(tokens)
	}
	if resetter, ok := deps.RateLimitPolicy.(command.ThrottleResetter); ok {
		facade.commands.ResetThrottle = command.NewResetThrottleCommand(resetter, client.Config().Auth.ClientID)
	}
	return facade, nil
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Reader() query.PatentReader {
	if f == nil {
		return nil
	}
	return f.reader
}

// Register subscribes every querier and command on the dispatcher and records
// them in the adapter's registry. Callers unsubscribe with
// gocommand.Unsubscribe.
func (f *Facade) Register(
	adapter *gocommand.RegistryAdapter,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if f == nil {
		return nil, fmt.Errorf("ops: facade is nil")
	}
	subscriptions, err := gocommand.RegisterQueries(adapter, f.queries, runnerOpts...)
	if err != nil {
		return nil, err
	}
	commandSubs, err := gocommand.RegisterCommands(adapter, f.commands, runnerOpts...)
	if err != nil {
		gocommand.Unsubscribe(subscriptions)
		return nil, err
	}
	return append(subscriptions, commandSubs...), nil
}
