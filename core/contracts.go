package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

// TransportAdapter sends one HTTP request. Implementations return an error only
// when no response was received; non-2xx statuses come back as responses.
type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// TokenSource hands out bearer credentials for resource requests.
type TokenSource interface {
	EnsureValid(ctx context.Context) (AccessToken, error)
	AuthorizationHeaderValue(ctx context.Context) (string, error)
}

// TokenInvalidator is implemented by token sources that can drop a token the
// upstream rejected.
type TokenInvalidator interface {
	Invalidate()
}

type RateLimitKey struct {
	ClientID string
	Service  string
}

type ResponseMeta struct {
	StatusCode int
	Headers    map[string]string
	RetryAfter *time.Duration
	Metadata   map[string]any
}

type RateLimitPolicy interface {
	BeforeCall(ctx context.Context, key RateLimitKey) error
	AfterCall(ctx context.Context, key RateLimitKey, res ResponseMeta) error
}

type Limiter interface {
	Wait(ctx context.Context) error
}
