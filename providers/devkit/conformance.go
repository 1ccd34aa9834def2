package devkit

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-epo-ops/core"
)

func ValidateTransportAdapterConformance(
	ctx context.Context,
	adapter core.TransportAdapter,
	request core.TransportRequest,
) error {
	if adapter == nil {
		return fmt.Errorf("devkit: transport adapter is required")
	}
	if strings.TrimSpace(adapter.Kind()) == "" {
		return fmt.Errorf("devkit: transport adapter kind is required")
	}
	_, err := adapter.Do(ctx, request)
	return err
}

// ValidateTokenSourceConformance checks that a token source hands out a
// usable token and a matching bearer header.
func ValidateTokenSourceConformance(ctx context.Context, source core.TokenSource) error {
	if source == nil {
		return fmt.Errorf("devkit: token source is required")
	}
	token, err := source.EnsureValid(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(token.Value) == "" {
		return fmt.Errorf("devkit: token source returned an empty token")
	}
	header, err := source.AuthorizationHeaderValue(ctx)
	if err != nil {
		return err
	}
	if header != "Bearer "+token.Value {
		return fmt.Errorf("devkit: authorization header %q does not carry the token", header)
	}
	return nil
}
