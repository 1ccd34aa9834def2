package core

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

const classificationCacheKeyPrefix = "go-epo-ops::classification::v1"

// Rate-limit buckets, named after the OPS throttling services.
const (
	ServiceSearch    = "search"
	ServiceRetrieval = "retrieval"
	ServiceInpadoc   = "inpadoc"
	ServiceOther     = "other"
)

// Client issues typed requests against OPS. It is safe for concurrent use.
type Client struct {
	config              Config
	logger              Logger
	loggerProvider      LoggerProvider
	metricsRecorder     MetricsRecorder
	transport           TransportAdapter
	tokens              TokenSource
	rateLimitPolicy     RateLimitPolicy
	limiter             Limiter
	tracer              trace.Tracer
	classificationCache repositorycache.CacheService
	retryPolicy         RetryPolicy
	validator           Validator
}

type ClientDependencies struct {
	Logger              Logger
	LoggerProvider      LoggerProvider
	MetricsRecorder     MetricsRecorder
	Transport           TransportAdapter
	TokenSource         TokenSource
	RateLimitPolicy     RateLimitPolicy
	Limiter             Limiter
	Tracer              trace.Tracer
	ClassificationCache repositorycache.CacheService
	RetryPolicy         RetryPolicy
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve(defaultServiceName, builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger(defaultServiceName + ".client"); named != nil {
			logger = glog.Ensure(named)
		}
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}

	finalConfig, err := builder.resolveConfig(context.Background())
	if err != nil {
		return nil, err
	}
	if builder.transport == nil {
		return nil, NewInternalError("ops: transport adapter is required")
	}
	if builder.tokens == nil {
		return nil, NewInternalError("ops: token source is required")
	}

	retryPolicy := finalConfig.RetryPolicy()
	if builder.retryPolicy != nil {
		retryPolicy = *builder.retryPolicy
	}

	return &Client{
		config:              finalConfig,
		logger:              logger,
		loggerProvider:      provider,
		metricsRecorder:     builder.metricsRecorder,
		transport:           builder.transport,
		tokens:              builder.tokens,
		rateLimitPolicy:     builder.rateLimitPolicy,
		limiter:             builder.limiter,
		tracer:              builder.tracer,
		classificationCache: builder.classificationCache,
		retryPolicy:         retryPolicy,
	}, nil
}

func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

func (c *Client) Dependencies() ClientDependencies {
	if c == nil {
		return ClientDependencies{}
	}
	return ClientDependencies{
		Logger:              c.logger,
		LoggerProvider:      c.loggerProvider,
		MetricsRecorder:     c.metricsRecorder,
		Transport:           c.transport,
		TokenSource:         c.tokens,
		RateLimitPolicy:     c.rateLimitPolicy,
		Limiter:             c.limiter,
		Tracer:              c.tracer,
		ClassificationCache: c.classificationCache,
		RetryPolicy:         c.retryPolicy,
	}
}

type callSettings struct {
	retryPolicy RetryPolicy
	timeout     time.Duration
}

// CallOption adjusts a single client call.
type CallOption func(*callSettings)

func WithCallRetryPolicy(policy RetryPolicy) CallOption {
	return func(s *callSettings) {
		s.retryPolicy = policy
	}
}

// WithCallTimeout bounds the whole call, retries and waits included.
func WithCallTimeout(timeout time.Duration) CallOption {
	return func(s *callSettings) {
		s.timeout = timeout
	}
}

func (c *Client) SearchPatents(ctx context.Context, query string, options SearchOptions, callOpts ...CallOption) (SearchResponse, error) {
	params := map[string]string{"q": query}
	if options.Range != "" {
		params["range"] = options.Range
	}
	if options.Constituent != "" {
		params["constituent"] = options.Constituent
	}
	return execute(ctx, c, operation[SearchResponse]{
		name:    "search_patents",
		service: ServiceSearch,
		path:    "/published-data/search",
		query:   params,
		fields:  map[string]any{"query": query},
		validateInput: func() error {
			return c.validator.SearchInput(query, options)
		},
		normalize: func(payload map[string]any, status int) SearchResponse {
			return NormalizeSearch(payload, query, status)
		},
		validateOutput: c.validator.SearchResponse,
	}, callOpts)
}

func (c *Client) GetBibliographicData(ctx context.Context, ref PatentReference, callOpts ...CallOption) (BibliographicData, error) {
	return execute(ctx, c, operation[BibliographicData]{
		name:          "get_bibliographic_data",
		service:       ServiceRetrieval,
		path:          referencePath("/published-data", ref) + "/biblio",
		fields:        referenceFields(ref),
		validateInput: func() error { return c.validator.PatentReference(ref) },
		normalize: func(payload map[string]any, _ int) BibliographicData {
			return NormalizeBibliographicData(payload)
		},
		validateOutput: c.validator.BibliographicData,
	}, callOpts)
}

func (c *Client) GetClaims(ctx context.Context, ref PatentReference, callOpts ...CallOption) (Claims, error) {
	return execute(ctx, c, operation[Claims]{
		name:          "get_claims",
		service:       ServiceRetrieval,
		path:          referencePath("/published-data", ref) + "/claims",
		fields:        referenceFields(ref),
		validateInput: func() error { return c.validator.PatentReference(ref) },
		normalize: func(payload map[string]any, _ int) Claims {
			return NormalizeClaims(payload)
		},
		validateOutput: c.validator.Claims,
	}, callOpts)
}

func (c *Client) GetFamily(ctx context.Context, ref PatentReference, callOpts ...CallOption) ([]FamilyMember, error) {
	return execute(ctx, c, operation[[]FamilyMember]{
		name:          "get_family",
		service:       ServiceInpadoc,
		path:          referencePath("/family", ref),
		fields:        referenceFields(ref),
		validateInput: func() error { return c.validator.PatentReference(ref) },
		normalize: func(payload map[string]any, _ int) []FamilyMember {
			return NormalizeFamily(payload)
		},
		validateOutput: c.validator.Family,
	}, callOpts)
}

func (c *Client) GetLegalStatus(ctx context.Context, ref PatentReference, callOpts ...CallOption) ([]LegalStatus, error) {
	return execute(ctx, c, operation[[]LegalStatus]{
		name:          "get_legal_status",
		service:       ServiceInpadoc,
		path:          referencePath("/legal", ref),
		fields:        referenceFields(ref),
		validateInput: func() error { return c.validator.PatentReference(ref) },
		normalize: func(payload map[string]any, _ int) []LegalStatus {
			return NormalizeLegalStatus(payload)
		},
		validateOutput: c.validator.LegalStatus,
	}, callOpts)
}

// GetClassification looks up a CPC class. Successful lookups are served from
// the classification cache when one is configured.
func (c *Client) GetClassification(ctx context.Context, class string, options ClassificationOptions, callOpts ...CallOption) (ClassificationResponse, error) {
	params := map[string]string{}
	if options.Ancestors != nil {
		params["ancestors"] = strconv.FormatBool(*options.Ancestors)
	}
	if options.Navigation != nil {
		params["navigation"] = strconv.FormatBool(*options.Navigation)
	}
	if options.Depth != "" {
		params["depth"] = options.Depth
	}
	op := operation[ClassificationResponse]{
		name:           "get_classification",
		service:        ServiceOther,
		path:           "/classification/cpc/" + escapeSegments(strings.TrimSpace(class)),
		query:          params,
		fields:         map[string]any{"class": class},
		validateInput:  func() error { return c.validator.ClassificationInput(class, options) },
		normalize:      NormalizeClassification,
		validateOutput: c.validator.Classification,
	}
	if c == nil || c.classificationCache == nil {
		return execute(ctx, c, op, callOpts)
	}
	if err := c.validator.ClassificationInput(class, options); err != nil {
		return ClassificationResponse{}, err
	}
	return repositorycache.GetOrFetch(ctx, c.classificationCache, classificationCacheKey(class, params),
		func(ctx context.Context) (ClassificationResponse, error) {
			return execute(ctx, c, op, callOpts)
		})
}

func (c *Client) ConvertNumber(ctx context.Context, kind, sourceFormat, number, targetFormat string, callOpts ...CallOption) (NumberConversionResponse, error) {
	input := PatentReference{Kind: kind, Format: sourceFormat, Number: number}
	return execute(ctx, c, operation[NumberConversionResponse]{
		name:    "convert_number",
		service: ServiceOther,
		path: fmt.Sprintf("/number/convert/%s/%s/%s/%s",
			url.PathEscape(kind), url.PathEscape(sourceFormat), url.PathEscape(number), url.PathEscape(targetFormat)),
		fields: map[string]any{
			"kind":          kind,
			"source_format": sourceFormat,
			"number":        number,
			"target_format": targetFormat,
		},
		validateInput: func() error {
			return c.validator.NumberConversionInput(kind, sourceFormat, number, targetFormat)
		},
		normalize: func(payload map[string]any, status int) NumberConversionResponse {
			return NormalizeNumberConversion(payload, input, targetFormat, status)
		},
		validateOutput: c.validator.NumberConversion,
	}, callOpts)
}

func (c *Client) SearchClassification(ctx context.Context, query string, callOpts ...CallOption) (ClassificationResponse, error) {
	return execute(ctx, c, operation[ClassificationResponse]{
		name:           "search_classification",
		service:        ServiceOther,
		path:           "/classification/cpc/search",
		query:          map[string]string{"q": query},
		fields:         map[string]any{"query": query},
		validateInput:  func() error { return c.validator.ClassificationSearchInput(query) },
		normalize:      NormalizeClassificationSearch,
		validateOutput: c.validator.Classification,
	}, callOpts)
}

type operation[T any] struct {
	name           string
	service        string
	path           string
	query          map[string]string
	fields         map[string]any
	validateInput  func() error
	normalize      func(payload map[string]any, status int) T
	validateOutput func(T) error
}

func execute[T any](ctx context.Context, c *Client, op operation[T], callOpts []CallOption) (T, error) {
	var zero T
	if c == nil {
		return zero, NewInternalError("ops: client is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now()
	requestID := uuid.NewString()
	settings := c.callSettings(callOpts)

	ctx, span := c.startSpan(ctx, op.name, requestID)
	defer span.End()
	if settings.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, settings.timeout)
		defer cancel()
	}

	fields := cloneFields(op.fields)
	fields["request_id"] = requestID
	fields["path"] = op.path

	attempts := 0
	result, err := func() (T, error) {
		if op.validateInput != nil {
			if err := op.validateInput(); err != nil {
				return zero, err
			}
		}
		if c.transport == nil || c.tokens == nil {
			return zero, NewInternalError("ops: client is not configured")
		}
		if _, err := c.tokens.EnsureValid(ctx); err != nil {
			return zero, err
		}
		policy := settings.retryPolicy
		onRetry := policy.OnRetry
		policy.OnRetry = func(attempt int, delay time.Duration, err error) {
			retryFields := cloneFields(fields)
			retryFields["attempt"] = attempt
			retryFields["delay_ms"] = delay.Milliseconds()
			retryFields["error"] = err.Error()
			c.logWarn(ctx, normalizeOperation(op.name)+" retrying", retryFields)
			if onRetry != nil {
				onRetry(attempt, delay, err)
			}
		}
		return Retry(ctx, policy, func(ctx context.Context, attempt int) (T, error) {
			attempts = attempt
			return attemptOnce(ctx, c, op, requestID)
		})
	}()
	err = withRequestID(err, requestID)

	fields["attempts"] = attempts
	c.observeOperation(ctx, span, startedAt, op.name, err, fields)
	if err != nil {
		return zero, err
	}
	return result, nil
}

// attemptOnce sends one request and turns the answer into a validated record.
// Every failure leaves here already classified.
func attemptOnce[T any](ctx context.Context, c *Client, op operation[T], requestID string) (T, error) {
	var zero T
	key := RateLimitKey{ClientID: c.config.Auth.ClientID, Service: op.service}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return zero, asServiceError(ctx, err)
		}
	}
	if c.rateLimitPolicy != nil {
		if err := c.rateLimitPolicy.BeforeCall(ctx, key); err != nil {
			return zero, asServiceError(ctx, err)
		}
	}

	authorization, err := c.tokens.AuthorizationHeaderValue(ctx)
	if err != nil {
		return zero, err
	}
	res, err := c.transport.Do(ctx, TransportRequest{
		Method: http.MethodGet,
		URL:    c.endpoint(op.path),
		Headers: map[string]string{
			"Accept":        "application/json",
			"Authorization": authorization,
			"X-Request-Id":  requestID,
		},
		Query:                op.query,
		Timeout:              c.config.Transport.Timeout,
		MaxResponseBodyBytes: c.config.Transport.MaxResponseBodyBytes,
		Metadata:             map[string]any{"operation": op.name, "request_id": requestID},
	})
	if err != nil {
		return zero, ClassifyTransportError(ctx, err)
	}

	if c.rateLimitPolicy != nil {
		if err := c.rateLimitPolicy.AfterCall(ctx, key, ResponseMeta{
			StatusCode: res.StatusCode,
			Headers:    res.Headers,
			Metadata:   map[string]any{"operation": op.name},
		}); err != nil {
			c.logWarn(ctx, "rate limit state update failed", map[string]any{
				"operation":  op.name,
				"request_id": requestID,
				"error":      err.Error(),
			})
		}
	}

	if err := ClassifyResponse(res); err != nil {
		if res.StatusCode == http.StatusUnauthorized {
			if invalidator, ok := c.tokens.(TokenInvalidator); ok {
				invalidator.Invalidate()
			}
		}
		return zero, err
	}

	payload, err := DecodePayload(res.Body)
	if err != nil {
		return zero, err
	}
	result := op.normalize(payload, res.StatusCode)
	if op.validateOutput != nil {
		if err := op.validateOutput(result); err != nil {
			return zero, err
		}
	}
	return result, nil
}

func (c *Client) callSettings(callOpts []CallOption) callSettings {
	settings := callSettings{retryPolicy: c.retryPolicy}
	for _, opt := range callOpts {
		if opt != nil {
			opt(&settings)
		}
	}
	return settings
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(strings.TrimSpace(c.config.BaseURL), "/") + path
}

// asServiceError keeps classified errors and lifts gate errors that know how
// to describe themselves as envelopes.
func asServiceError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if KindOf(err) != KindUnknown {
		return err
	}
	var convertible interface{ ToServiceError() *goerrors.Error }
	if goerrors.As(err, &convertible) {
		return convertible.ToServiceError()
	}
	return ClassifyTransportError(ctx, err)
}

func referencePath(prefix string, ref PatentReference) string {
	return fmt.Sprintf("%s/%s/%s/%s",
		prefix, url.PathEscape(ref.Kind), url.PathEscape(ref.Format), url.PathEscape(strings.TrimSpace(ref.Number)))
}

func referenceFields(ref PatentReference) map[string]any {
	return map[string]any{
		"kind":   ref.Kind,
		"format": ref.Format,
		"number": ref.Number,
	}
}

// escapeSegments escapes a CPC symbol while keeping its group separator.
func escapeSegments(value string) string {
	parts := strings.Split(value, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

func classificationCacheKey(class string, params map[string]string) string {
	segments := []string{
		classificationCacheKeyPrefix,
		url.PathEscape(strings.ToUpper(strings.TrimSpace(class))),
		url.PathEscape(params["ancestors"]),
		url.PathEscape(params["navigation"]),
		url.PathEscape(params["depth"]),
	}
	return strings.Join(segments, "::")
}
