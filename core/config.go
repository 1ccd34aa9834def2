package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultBaseURL  = "https://ops.epo.org/3.2/rest-services"
	DefaultTokenURL = "https://ops.epo.org/3.2/auth/accesstoken"

	defaultServiceName          = "ops"
	defaultScope                = "ops"
	defaultExpiryBuffer         = 5 * time.Minute
	defaultTransportTimeout     = 30 * time.Second
	defaultMaxResponseBodyBytes = 8 << 20
)

type AuthConfig struct {
	TokenURL     string        `koanf:"token_url" mapstructure:"token_url"`
	ClientID     string        `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret string        `koanf:"client_secret" mapstructure:"client_secret"`
	Scope        string        `koanf:"scope" mapstructure:"scope"`
	ExpiryBuffer time.Duration `koanf:"expiry_buffer" mapstructure:"expiry_buffer"`
}

type RetryConfig struct {
	MaxRetries    int           `koanf:"max_retries" mapstructure:"max_retries"`
	InitialDelay  time.Duration `koanf:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay      time.Duration `koanf:"max_delay" mapstructure:"max_delay"`
	BackoffFactor float64       `koanf:"backoff_factor" mapstructure:"backoff_factor"`
}

type TransportConfig struct {
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

// ThrottleConfig paces requests on the client side. A zero rate disables it.
type ThrottleConfig struct {
	RequestsPerSecond float64 `koanf:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `koanf:"burst" mapstructure:"burst"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	BaseURL     string          `koanf:"base_url" mapstructure:"base_url"`
	Auth        AuthConfig      `koanf:"auth" mapstructure:"auth"`
	Retry       RetryConfig     `koanf:"retry" mapstructure:"retry"`
	Transport   TransportConfig `koanf:"transport" mapstructure:"transport"`
	Throttle    ThrottleConfig  `koanf:"throttle" mapstructure:"throttle"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: defaultServiceName,
		BaseURL:     DefaultBaseURL,
		Auth: AuthConfig{
			TokenURL:     DefaultTokenURL,
			Scope:        defaultScope,
			ExpiryBuffer: defaultExpiryBuffer,
		},
		Retry: RetryConfig{
			MaxRetries:    defaultMaxRetries,
			InitialDelay:  defaultInitialDelay,
			MaxDelay:      defaultMaxDelay,
			BackoffFactor: defaultBackoffFactor,
		},
		Transport: TransportConfig{
			Timeout:              defaultTransportTimeout,
			MaxResponseBodyBytes: defaultMaxResponseBodyBytes,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return fmt.Errorf("core: base_url is required")
	}
	if strings.TrimSpace(c.Auth.TokenURL) == "" {
		return fmt.Errorf("core: auth.token_url is required")
	}
	if c.Auth.ExpiryBuffer < 0 {
		return fmt.Errorf("core: auth.expiry_buffer must not be negative")
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("core: retry.max_retries must not be negative")
	}
	if c.Retry.InitialDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("core: retry delays must not be negative")
	}
	if c.Retry.BackoffFactor < 1 {
		return fmt.Errorf("core: retry.backoff_factor must be at least 1")
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("core: transport.timeout must not be negative")
	}
	if c.Throttle.RequestsPerSecond < 0 || c.Throttle.Burst < 0 {
		return fmt.Errorf("core: throttle values must not be negative")
	}
	return nil
}

// RetryPolicy builds the default per-call policy from the retry section.
func (c Config) RetryPolicy() RetryPolicy {
	policy := DefaultRetryPolicy()
	policy.MaxRetries = c.Retry.MaxRetries
	policy.InitialDelay = c.Retry.InitialDelay
	policy.MaxDelay = c.Retry.MaxDelay
	policy.BackoffFactor = c.Retry.BackoffFactor
	return policy
}
