package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-epo-ops/core"
	glog "github.com/goliatone/go-logger/glog"
	"golang.org/x/sync/singleflight"
)

const (
	defaultExpiryBuffer = 5 * time.Minute
	defaultGrantTimeout = 30 * time.Second
	refreshFlightKey    = "access_token"

	// expires_in only has whole-second resolution, so tokens are retired one
	// step before the buffer boundary.
	expiresInResolution = time.Second
)

type TokenManagerConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string
	// ExpiryBuffer is the tail of a token's lifetime during which it is
	// already treated as expired.
	ExpiryBuffer time.Duration
	Timeout      time.Duration
	Transport    core.TransportAdapter
	Logger       core.Logger
	Now          func() time.Time
}

// TokenManager owns the OAuth client-credentials token for the client. At most
// one grant request is in flight at any time; concurrent callers wait for and
// share its outcome.
type TokenManager struct {
	config TokenManagerConfig
	logger core.Logger
	group  singleflight.Group

	mu    sync.RWMutex
	token *core.AccessToken
}

func NewTokenManager(cfg TokenManagerConfig) *TokenManager {
	expiryBuffer := cfg.ExpiryBuffer
	if expiryBuffer <= 0 {
		expiryBuffer = defaultExpiryBuffer
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGrantTimeout
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &TokenManager{
		config: TokenManagerConfig{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			TokenURL:     firstNonEmpty(cfg.TokenURL, core.DefaultTokenURL),
			Scope:        firstNonEmpty(cfg.Scope, "ops"),
			ExpiryBuffer: expiryBuffer,
			Timeout:      timeout,
			Transport:    cfg.Transport,
			Now:          now,
		},
		logger: glog.Ensure(cfg.Logger),
	}
}

// EnsureValid returns a token that is not expired, requesting a new one when
// needed. A failed grant leaves the previous token in place.
func (m *TokenManager) EnsureValid(ctx context.Context) (core.AccessToken, error) {
	if m == nil {
		return core.AccessToken{}, core.NewInternalError("ops: token manager is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if token, ok := m.current(); ok {
		return token, nil
	}

	// The grant runs detached from the first caller so that its cancellation
	// does not fail the callers sharing the flight.
	return m.await(ctx, m.group.DoChan(refreshFlightKey, func() (any, error) {
		if token, ok := m.current(); ok {
			return token, nil
		}
		return m.refresh(context.WithoutCancel(ctx))
	}))
}

// ForceRefresh requests a new token even when the current one is still valid.
// It joins an in-flight grant if there is one, and installs the new token only
// when the grant succeeds.
func (m *TokenManager) ForceRefresh(ctx context.Context) (core.AccessToken, error) {
	if m == nil {
		return core.AccessToken{}, core.NewInternalError("ops: token manager is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return m.await(ctx, m.group.DoChan(refreshFlightKey, func() (any, error) {
		return m.refresh(context.WithoutCancel(ctx))
	}))
}

func (m *TokenManager) await(ctx context.Context, flight <-chan singleflight.Result) (core.AccessToken, error) {
	select {
	case <-ctx.Done():
		return core.AccessToken{}, core.NewCancelledError(ctx.Err())
	case result := <-flight:
		if result.Err != nil {
			return core.AccessToken{}, result.Err
		}
		return result.Val.(core.AccessToken), nil
	}
}

func (m *TokenManager) AuthorizationHeaderValue(ctx context.Context) (string, error) {
	token, err := m.EnsureValid(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + token.Value, nil
}

// Invalidate drops the current token so the next caller requests a new one.
func (m *TokenManager) Invalidate() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = nil
}

func (m *TokenManager) current() (core.AccessToken, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.token == nil || m.token.ExpiredAt(m.config.Now(), m.config.ExpiryBuffer+expiresInResolution) {
		return core.AccessToken{}, false
	}
	return *m.token, true
}

func (m *TokenManager) refresh(ctx context.Context) (core.AccessToken, error) {
	if m.config.Transport == nil {
		return core.AccessToken{}, core.NewInternalError("ops: token manager requires a transport")
	}
	if m.config.ClientID == "" || m.config.ClientSecret == "" {
		return core.AccessToken{}, core.NewAuthenticationError("ops: client credentials are not configured", 0)
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", m.config.Scope)

	requestedAt := m.config.Now().UTC()
	res, err := m.config.Transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    m.config.TokenURL,
		Headers: map[string]string{
			"Authorization": "Basic " + basicCredentials(m.config.ClientID, m.config.ClientSecret),
			"Content-Type":  "application/x-www-form-urlencoded",
			"Accept":        "application/json",
		},
		Body:    []byte(form.Encode()),
		Timeout: m.config.Timeout,
	})
	if err != nil {
		m.logger.Error("ops token grant failed", "token_url", m.config.TokenURL, "error", err.Error())
		return core.AccessToken{}, wrapAuthError(err, "ops: failed to obtain access token")
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		m.logger.Error("ops token grant rejected", "token_url", m.config.TokenURL, "status", res.StatusCode)
		authErr := core.NewAuthenticationError("ops: failed to obtain access token", http.StatusUnauthorized)
		authErr.WithMetadata(map[string]any{"status": res.StatusCode})
		return core.AccessToken{}, authErr
	}

	token, err := decodeGrant(res.Body, requestedAt)
	if err != nil {
		m.logger.Error("ops token grant malformed", "token_url", m.config.TokenURL, "error", err.Error())
		return core.AccessToken{}, err
	}

	m.mu.Lock()
	m.token = &token
	m.mu.Unlock()

	m.logger.Info("ops token refreshed", "expires_in_s", int64(token.ExpiresIn/time.Second), "token_type", token.TokenType)
	return token, nil
}

type grantResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   json.RawMessage `json:"expires_in"`
	Scope       string          `json:"scope"`
}

func decodeGrant(body []byte, issuedAt time.Time) (core.AccessToken, error) {
	var grant grantResponse
	decoder := json.NewDecoder(bytes.NewReader(body))
	if err := decoder.Decode(&grant); err != nil {
		return core.AccessToken{}, wrapAuthError(err, "ops: malformed token response")
	}
	if strings.TrimSpace(grant.AccessToken) == "" {
		return core.AccessToken{}, core.NewAuthenticationError("ops: token response missing access_token", 0)
	}
	seconds, ok := parseExpiresIn(grant.ExpiresIn)
	if !ok || seconds <= 0 {
		return core.AccessToken{}, core.NewAuthenticationError("ops: token response has no usable expires_in", 0)
	}
	return core.AccessToken{
		Value:     strings.TrimSpace(grant.AccessToken),
		TokenType: firstNonEmpty(grant.TokenType, "Bearer"),
		ExpiresIn: time.Duration(seconds) * time.Second,
		IssuedAt:  issuedAt,
		Scope:     strings.TrimSpace(grant.Scope),
	}, nil
}

func basicCredentials(clientID string, clientSecret string) string {
	return base64.StdEncoding.EncodeToString([]byte(clientID + ":" + clientSecret))
}

var (
	_ core.TokenSource      = (*TokenManager)(nil)
	_ core.TokenInvalidator = (*TokenManager)(nil)
)
