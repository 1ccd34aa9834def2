package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-epo-ops/core"
	goerrors "github.com/goliatone/go-errors"
)

var ErrStateNotFound = errors.New("ratelimit: state not found")

// Traffic light colours OPS reports per service in X-Throttling-Control.
const (
	ColorGreen  = "green"
	ColorYellow = "yellow"
	ColorRed    = "red"
	ColorBlack  = "black"
)

const throttlingControlHeader = "x-throttling-control"

var serviceStatusPattern = regexp.MustCompile(`([a-z-]+)=(green|yellow|red|black):(\d+)`)

// ServiceStatus is one entry of the throttling header, e.g. search=green:30.
type ServiceStatus struct {
	Color string
	// Limit is the number of requests per minute currently allowed.
	Limit int
}

// ThrottlingControl is the parsed X-Throttling-Control header:
// "busy (images=green:100, inpadoc=yellow:45, other=green:1000, retrieval=green:200, search=black:0)".
type ThrottlingControl struct {
	System   string
	Services map[string]ServiceStatus
}

func ParseThrottlingControl(raw string) (ThrottlingControl, bool) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ThrottlingControl{}, false
	}
	control := ThrottlingControl{Services: map[string]ServiceStatus{}}
	if index := strings.Index(raw, "("); index >= 0 {
		control.System = strings.TrimSpace(raw[:index])
	} else {
		control.System = raw
	}
	for _, match := range serviceStatusPattern.FindAllStringSubmatch(raw, -1) {
		limit, err := strconv.Atoi(match[3])
		if err != nil {
			continue
		}
		control.Services[match[1]] = ServiceStatus{Color: match[2], Limit: limit}
	}
	return control, true
}

type State struct {
	Key            core.RateLimitKey
	System         string
	Color          string
	Limit          int
	RetryAfter     *time.Duration
	ThrottledUntil *time.Time
	LastStatus     int
	Attempts       int
	UpdatedAt      time.Time
	Metadata       map[string]any
}

type StateStore interface {
	Get(ctx context.Context, key core.RateLimitKey) (State, error)
	Upsert(ctx context.Context, state State) error
}

type ThrottledError struct {
	Service    string
	Color      string
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf(
		"ratelimit: service %q throttled (%s) for %s",
		strings.TrimSpace(e.Service),
		strings.TrimSpace(e.Color),
		e.RetryAfter,
	)
}

func (e ThrottledError) ToServiceError() *goerrors.Error {
	metadata := map[string]any{
		"service": strings.TrimSpace(e.Service),
	}
	if e.Color != "" {
		metadata["color"] = e.Color
	}
	if e.RetryAfter > 0 {
		metadata["retry_after_ms"] = e.RetryAfter.Milliseconds()
	}
	return goerrors.New(e.Error(), goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.ErrorTextRateLimited).
		WithMetadata(metadata)
}

// AdaptivePolicy holds calls back while OPS reports a service as overloaded.
// A black light or a 429 opens a throttle window; calls inside the window fail
// fast with ThrottledError, which the client reports as a rate-limit error.
type AdaptivePolicy struct {
	Store            StateStore
	Now              func() time.Time
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	DefaultRetryHint time.Duration
}

func NewAdaptivePolicy(store StateStore) *AdaptivePolicy {
	return &AdaptivePolicy{
		Store:            store,
		Now:              func() time.Time { return time.Now().UTC() },
		InitialBackoff:   time.Second,
		MaxBackoff:       time.Minute,
		DefaultRetryHint: 5 * time.Second,
	}
}

func (p *AdaptivePolicy) BeforeCall(ctx context.Context, key core.RateLimitKey) error {
	if p == nil || p.Store == nil {
		return nil
	}
	state, err := p.Store.Get(ctx, normalizeKey(key))
	if err != nil {
		if errors.Is(err, ErrStateNotFound) {
			return nil
		}
		return err
	}

	now := p.now()
	if until := state.ThrottledUntil; until != nil && now.Before(*until) {
		return ThrottledError{Service: state.Key.Service, Color: state.Color, RetryAfter: until.Sub(now)}
	}
	return nil
}

func (p *AdaptivePolicy) AfterCall(ctx context.Context, key core.RateLimitKey, res core.ResponseMeta) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = normalizeKey(key)
	now := p.now()
	state, err := p.Store.Get(ctx, key)
	if err != nil && !errors.Is(err, ErrStateNotFound) {
		return err
	}
	if errors.Is(err, ErrStateNotFound) {
		state = State{Key: key}
	}

	state.LastStatus = res.StatusCode
	state.UpdatedAt = now
	state.Metadata = cloneMap(state.Metadata)
	for k, v := range cloneMap(res.Metadata) {
		state.Metadata[k] = v
	}

	blocked := false
	if control, ok := ParseThrottlingControl(core.HeaderValue(res.Headers, throttlingControlHeader)); ok {
		state.System = control.System
		if status, found := control.Services[key.Service]; found {
			state.Color = status.Color
			state.Limit = status.Limit
			blocked = status.Color == ColorBlack
		}
	}

	retryAfter, hasRetryAfter := parseRetryAfter(res, now)
	if hasRetryAfter {
		state.RetryAfter = &retryAfter
	} else {
		state.RetryAfter = nil
	}

	if res.StatusCode == http.StatusTooManyRequests || blocked {
		state.Attempts++
		delay := retryAfter
		if !hasRetryAfter {
			delay = p.nextBackoff(state.Attempts)
		}
		until := now.Add(delay)
		state.ThrottledUntil = &until
		return p.Store.Upsert(ctx, state)
	}

	state.Attempts = 0
	state.ThrottledUntil = nil
	return p.Store.Upsert(ctx, state)
}

// Reset closes any throttle window recorded for key.
func (p *AdaptivePolicy) Reset(ctx context.Context, key core.RateLimitKey) error {
	if p == nil || p.Store == nil {
		return nil
	}
	key = normalizeKey(key)
	return p.Store.Upsert(ctx, State{Key: key, UpdatedAt: p.now()})
}

func (p *AdaptivePolicy) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *AdaptivePolicy) nextBackoff(attempt int) time.Duration {
	initial := p.InitialBackoff
	if initial <= 0 {
		initial = time.Second
	}
	maximum := p.MaxBackoff
	if maximum <= 0 {
		maximum = time.Minute
	}
	if attempt <= 0 {
		return initial
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maximum {
			return maximum
		}
	}
	if delay <= 0 {
		return p.defaultRetryHint()
	}
	return delay
}

func (p *AdaptivePolicy) defaultRetryHint() time.Duration {
	if p != nil && p.DefaultRetryHint > 0 {
		return p.DefaultRetryHint
	}
	return 5 * time.Second
}

func parseRetryAfter(res core.ResponseMeta, now time.Time) (time.Duration, bool) {
	if res.RetryAfter != nil && *res.RetryAfter > 0 {
		return *res.RetryAfter, true
	}
	return core.ParseRetryAfter(core.HeaderValue(res.Headers, "retry-after"), now)
}

func normalizeKey(key core.RateLimitKey) core.RateLimitKey {
	return core.RateLimitKey{
		ClientID: strings.TrimSpace(key.ClientID),
		Service:  strings.TrimSpace(strings.ToLower(key.Service)),
	}
}

func cloneMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}

type MemoryStateStore struct {
	mu    sync.RWMutex
	items map[string]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{items: map[string]State{}}
}

func (s *MemoryStateStore) Get(_ context.Context, key core.RateLimitKey) (State, error) {
	if s == nil {
		return State{}, fmt.Errorf("ratelimit: state store is nil")
	}
	normalized := normalizeKey(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.items[stateKey(normalized)]
	if !ok {
		return State{}, ErrStateNotFound
	}
	state.Metadata = cloneMap(state.Metadata)
	return state, nil
}

func (s *MemoryStateStore) Upsert(_ context.Context, state State) error {
	if s == nil {
		return fmt.Errorf("ratelimit: state store is nil")
	}
	state.Key = normalizeKey(state.Key)
	state.Metadata = cloneMap(state.Metadata)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[stateKey(state.Key)] = state
	return nil
}

func stateKey(key core.RateLimitKey) string {
	return key.ClientID + "|" + key.Service
}

var _ core.RateLimitPolicy = (*AdaptivePolicy)(nil)
