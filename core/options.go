package core

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/goliatone/go-epo-ops"

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type clientBuilder struct {
	runtimeConfig       Config
	logger              Logger
	loggerProvider      LoggerProvider
	metricsRecorder     MetricsRecorder
	configProvider      ConfigProvider
	optionsResolver     OptionsResolver
	transport           TransportAdapter
	tokens              TokenSource
	rateLimitPolicy     RateLimitPolicy
	limiter             Limiter
	tracer              trace.Tracer
	classificationCache repositorycache.CacheService
	retryPolicy         *RetryPolicy
}

type Option func(*clientBuilder)

func WithLogger(logger Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *clientBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *clientBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *clientBuilder) {
		b.optionsResolver = resolver
	}
}

func WithTransport(transport TransportAdapter) Option {
	return func(b *clientBuilder) {
		b.transport = transport
	}
}

func WithTokenSource(tokens TokenSource) Option {
	return func(b *clientBuilder) {
		b.tokens = tokens
	}
}

func WithRateLimitPolicy(policy RateLimitPolicy) Option {
	return func(b *clientBuilder) {
		b.rateLimitPolicy = policy
	}
}

func WithLimiter(limiter Limiter) Option {
	return func(b *clientBuilder) {
		b.limiter = limiter
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(b *clientBuilder) {
		b.tracer = tracer
	}
}

// WithClassificationCache memoizes classification lookups, which rarely
// change, for the lifetime of the cache service.
func WithClassificationCache(cache repositorycache.CacheService) Option {
	return func(b *clientBuilder) {
		b.classificationCache = cache
	}
}

// WithRetryPolicy replaces the policy derived from the retry config section.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(b *clientBuilder) {
		b.retryPolicy = &policy
	}
}

func defaultClientBuilder(runtime Config) clientBuilder {
	loggerProvider, logger := glog.Resolve(defaultServiceName, nil, nil)
	return clientBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		tracer:          otel.Tracer(instrumentationName),
	}
}

// ResolveConfig layers defaults, the config provider output and runtime
// values the same way NewClient does, without building a client.
func ResolveConfig(ctx context.Context, runtime Config, options ...Option) (Config, error) {
	builder := defaultClientBuilder(runtime)
	for _, opt := range options {
		if opt != nil {
			opt(&builder)
		}
	}
	return builder.resolveConfig(ctx)
}

func (b *clientBuilder) resolveConfig(ctx context.Context) (Config, error) {
	if b.configProvider == nil {
		b.configProvider = NewCfgxConfigProvider(nil)
	}
	if b.optionsResolver == nil {
		b.optionsResolver = GoOptionsResolver{}
	}
	defaults := DefaultConfig()
	loaded, err := b.configProvider.Load(ctx, defaults)
	if err != nil {
		return Config{}, mapBuildError(err)
	}
	resolved, err := b.optionsResolver.Resolve(defaults, loaded, b.runtimeConfig)
	if err != nil {
		return Config{}, mapBuildError(err)
	}
	return resolved, nil
}

func mapBuildError(err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "ops: configuration invalid").
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorTextInternal)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

// NewStaticConfigLoader serves a fixed raw configuration map, typically one
// decoded from a file or built from flags.
func NewStaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults < loaded config < runtime config. Zero
// values in the upper layers never mask a lower layer.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	putString(layer, "service_name", cfg.ServiceName, includeZero)
	putString(layer, "base_url", cfg.BaseURL, includeZero)

	auth := map[string]any{}
	putString(auth, "token_url", cfg.Auth.TokenURL, includeZero)
	putString(auth, "client_id", cfg.Auth.ClientID, includeZero)
	putString(auth, "client_secret", cfg.Auth.ClientSecret, includeZero)
	putString(auth, "scope", cfg.Auth.Scope, includeZero)
	if includeZero || cfg.Auth.ExpiryBuffer != 0 {
		auth["expiry_buffer"] = cfg.Auth.ExpiryBuffer
	}
	putSection(layer, "auth", auth)

	retry := map[string]any{}
	if includeZero || cfg.Retry.MaxRetries != 0 {
		retry["max_retries"] = cfg.Retry.MaxRetries
	}
	if includeZero || cfg.Retry.InitialDelay != 0 {
		retry["initial_delay"] = cfg.Retry.InitialDelay
	}
	if includeZero || cfg.Retry.MaxDelay != 0 {
		retry["max_delay"] = cfg.Retry.MaxDelay
	}
	if includeZero || cfg.Retry.BackoffFactor != 0 {
		retry["backoff_factor"] = cfg.Retry.BackoffFactor
	}
	putSection(layer, "retry", retry)

	transport := map[string]any{}
	if includeZero || cfg.Transport.Timeout != 0 {
		transport["timeout"] = cfg.Transport.Timeout
	}
	if includeZero || cfg.Transport.MaxResponseBodyBytes != 0 {
		transport["max_response_body_bytes"] = cfg.Transport.MaxResponseBodyBytes
	}
	putSection(layer, "transport", transport)

	throttle := map[string]any{}
	if includeZero || cfg.Throttle.RequestsPerSecond != 0 {
		throttle["requests_per_second"] = cfg.Throttle.RequestsPerSecond
	}
	if includeZero || cfg.Throttle.Burst != 0 {
		throttle["burst"] = cfg.Throttle.Burst
	}
	putSection(layer, "throttle", throttle)
	return layer
}

func putString(layer map[string]any, key string, value string, includeZero bool) {
	if includeZero || strings.TrimSpace(value) != "" {
		layer[key] = value
	}
}

func putSection(layer map[string]any, key string, section map[string]any) {
	if len(section) > 0 {
		layer[key] = section
	}
}
