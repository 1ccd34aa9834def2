// Package ops is a client for the European Patent Office Open Patent
// Services REST API. New wires the transport, token manager and rate-limit
// gate into a ready core.Client.
package ops

import (
	"context"
	"time"

	"github.com/goliatone/go-epo-ops/adapters/gologger"
	"github.com/goliatone/go-epo-ops/adapters/prometheus"
	"github.com/goliatone/go-epo-ops/auth"
	"github.com/goliatone/go-epo-ops/core"
	"github.com/goliatone/go-epo-ops/ratelimit"
	"github.com/goliatone/go-epo-ops/transport"
	promclient "github.com/prometheus/client_golang/prometheus"
)

type Config = core.Config

type Client = core.Client

type ClientOption = core.Option

type CallOption = core.CallOption

type RetryPolicy = core.RetryPolicy

type PatentReference = core.PatentReference
type SearchOptions = core.SearchOptions
type ClassificationOptions = core.ClassificationOptions
type SearchResponse = core.SearchResponse
type BibliographicData = core.BibliographicData
type Claims = core.Claims
type FamilyMember = core.FamilyMember
type LegalStatus = core.LegalStatus
type ClassificationResponse = core.ClassificationResponse
type NumberConversionResponse = core.NumberConversionResponse

type ErrorKind = core.ErrorKind

var (
	KindOf           = core.KindOf
	IsAuthentication = core.IsAuthentication
	IsRateLimit      = core.IsRateLimit
	IsValidation     = core.IsValidation
	IsNetwork        = core.IsNetwork
	IsAPI            = core.IsAPI
	IsCancelled      = core.IsCancelled

	WithCallRetryPolicy = core.WithCallRetryPolicy
	WithCallTimeout     = core.WithCallTimeout
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

type setup struct {
	httpClient     transport.HTTPDoer
	transport      core.TransportAdapter
	logger         core.Logger
	loggerProvider core.LoggerProvider
	stateStore     ratelimit.StateStore
	registerer     promclient.Registerer
	now            func() time.Time
	clientOptions  []core.Option
}

// Option configures how New assembles the client.
type Option func(*setup)

// WithHTTPClient sets the HTTP client used for token grants and resource
// requests.
func WithHTTPClient(client transport.HTTPDoer) Option {
	return func(s *setup) {
		s.httpClient = client
	}
}

// WithTransport replaces the REST adapter for token grants and resource
// requests alike.
func WithTransport(adapter core.TransportAdapter) Option {
	return func(s *setup) {
		s.transport = adapter
	}
}

func WithLogger(logger core.Logger) Option {
	return func(s *setup) {
		s.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(s *setup) {
		s.loggerProvider = provider
	}
}

// WithRateLimitStore keeps throttle state somewhere other than process memory.
func WithRateLimitStore(store ratelimit.StateStore) Option {
	return func(s *setup) {
		s.stateStore = store
	}
}

// WithPrometheus exports call counters and latencies on registerer.
func WithPrometheus(registerer promclient.Registerer) Option {
	return func(s *setup) {
		if registerer == nil {
			registerer = promclient.DefaultRegisterer
		}
		s.registerer = registerer
	}
}

// WithClock overrides the time source of the token manager and the
// rate-limit gate.
func WithClock(now func() time.Time) Option {
	return func(s *setup) {
		s.now = now
	}
}

// WithClientOptions forwards options to core.NewClient. They are applied after
// the defaults New installs, so they win.
func WithClientOptions(opts ...core.Option) Option {
	return func(s *setup) {
		s.clientOptions = append(s.clientOptions, opts...)
	}
}

// New builds a client from cfg. Configuration layering runs first so the
// token manager and the pacing limiter see the final values.
func New(cfg Config, opts ...Option) (*Client, error) {
	s := setup{}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	resolved, err := core.ResolveConfig(context.Background(), cfg, s.clientOptions...)
	if err != nil {
		return nil, err
	}

	provider, logger := gologger.Resolve("ops", s.loggerProvider, s.logger)

	adapter := s.transport
	if adapter == nil {
		adapter = transport.NewRESTAdapter(s.httpClient)
	}

	tokens := auth.NewTokenManager(auth.TokenManagerConfig{
		ClientID:     resolved.Auth.ClientID,
		ClientSecret: resolved.Auth.ClientSecret,
		TokenURL:     resolved.Auth.TokenURL,
		Scope:        resolved.Auth.Scope,
		ExpiryBuffer: resolved.Auth.ExpiryBuffer,
		Timeout:      resolved.Transport.Timeout,
		Transport:    adapter,
		Logger:       provider.GetLogger("ops.auth"),
		Now:          s.now,
	})

	store := s.stateStore
	if store == nil {
		store = ratelimit.NewMemoryStateStore()
	}
	policy := ratelimit.NewAdaptivePolicy(store)
	if s.now != nil {
		policy.Now = s.now
	}

	clientOpts := []core.Option{
		core.WithLoggerProvider(provider),
		core.WithLogger(logger),
		core.WithTransport(adapter),
		core.WithTokenSource(tokens),
		core.WithRateLimitPolicy(policy),
	}
	if limiter := ratelimit.FromConfig(resolved.Throttle); limiter != nil {
		clientOpts = append(clientOpts, core.WithLimiter(limiter))
	}
	if s.registerer != nil {
		clientOpts = append(clientOpts, core.WithMetricsRecorder(prometheus.NewRecorder(s.registerer)))
	}
	clientOpts = append(clientOpts, s.clientOptions...)

	return core.NewClient(resolved, clientOpts...)
}
