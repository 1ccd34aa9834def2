package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-epo-ops/core"
)

func searchKey() core.RateLimitKey {
	return core.RateLimitKey{ClientID: "client-id", Service: "search"}
}

func TestParseThrottlingControl(t *testing.T) {
	control, ok := ParseThrottlingControl("busy (images=green:100, inpadoc=yellow:45, other=green:1000, retrieval=red:20, search=black:0)")
	if !ok {
		t.Fatalf("expected header to parse")
	}
	if control.System != "busy" {
		t.Fatalf("expected busy system state, got %q", control.System)
	}
	if len(control.Services) != 5 {
		t.Fatalf("expected five services, got %d", len(control.Services))
	}
	if got := control.Services["search"]; got.Color != ColorBlack || got.Limit != 0 {
		t.Fatalf("unexpected search status %+v", got)
	}
	if got := control.Services["inpadoc"]; got.Color != ColorYellow || got.Limit != 45 {
		t.Fatalf("unexpected inpadoc status %+v", got)
	}

	if _, ok := ParseThrottlingControl("   "); ok {
		t.Fatalf("expected blank header to be rejected")
	}
}

func TestAdaptivePolicy_BeforeCallAllowsWhenNoState(t *testing.T) {
	policy := NewAdaptivePolicy(NewMemoryStateStore())

	if err := policy.BeforeCall(context.Background(), searchKey()); err != nil {
		t.Fatalf("expected no error when no state exists, got %v", err)
	}
}

func TestAdaptivePolicy_AfterCallRecordsTrafficLight(t *testing.T) {
	store := NewMemoryStateStore()
	policy := NewAdaptivePolicy(store)
	now := time.Unix(1_700_000_000, 0).UTC()
	policy.Now = func() time.Time { return now }

	err := policy.AfterCall(context.Background(), searchKey(), core.ResponseMeta{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"X-Throttling-Control": "idle (images=green:200, search=yellow:15)",
		},
		Metadata: map[string]any{"operation": "search_patents"},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}

	state, err := store.Get(context.Background(), searchKey())
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.System != "idle" || state.Color != ColorYellow || state.Limit != 15 {
		t.Fatalf("unexpected state %+v", state)
	}
	if state.ThrottledUntil != nil {
		t.Fatalf("expected no throttle window for a yellow light")
	}
	if state.Metadata["operation"] != "search_patents" {
		t.Fatalf("expected metadata to include operation")
	}
	if err := policy.BeforeCall(context.Background(), searchKey()); err != nil {
		t.Fatalf("expected call to be allowed, got %v", err)
	}
}

func TestAdaptivePolicy_BlackLightOpensThrottleWindow(t *testing.T) {
	policy := NewAdaptivePolicy(NewMemoryStateStore())
	now := time.Unix(1_700_000_000, 0).UTC()
	policy.Now = func() time.Time { return now }

	err := policy.AfterCall(context.Background(), searchKey(), core.ResponseMeta{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"x-throttling-control": "overloaded (search=black:0)"},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}

	err = policy.BeforeCall(context.Background(), searchKey())
	var throttled ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected throttled error, got %v", err)
	}
	if throttled.Color != ColorBlack || throttled.RetryAfter != time.Second {
		t.Fatalf("unexpected throttled error %+v", throttled)
	}

	other := core.RateLimitKey{ClientID: "client-id", Service: "retrieval"}
	if err := policy.BeforeCall(context.Background(), other); err != nil {
		t.Fatalf("expected other services to stay open, got %v", err)
	}

	now = now.Add(2 * time.Second)
	if err := policy.BeforeCall(context.Background(), searchKey()); err != nil {
		t.Fatalf("expected window to close, got %v", err)
	}
}

func TestAdaptivePolicy_TooManyRequestsUsesRetryAfter(t *testing.T) {
	policy := NewAdaptivePolicy(NewMemoryStateStore())
	now := time.Unix(1_700_000_000, 0).UTC()
	policy.Now = func() time.Time { return now }

	err := policy.AfterCall(context.Background(), searchKey(), core.ResponseMeta{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]string{"Retry-After": "30"},
	})
	if err != nil {
		t.Fatalf("after call: %v", err)
	}

	now = now.Add(10 * time.Second)
	err = policy.BeforeCall(context.Background(), searchKey())
	var throttled ThrottledError
	if !errors.As(err, &throttled) {
		t.Fatalf("expected throttled error, got %v", err)
	}
	if throttled.RetryAfter != 20*time.Second {
		t.Fatalf("expected 20s remaining, got %s", throttled.RetryAfter)
	}
}

func TestAdaptivePolicy_BackoffGrowsAndResetsOnSuccess(t *testing.T) {
	store := NewMemoryStateStore()
	policy := NewAdaptivePolicy(store)
	now := time.Unix(1_700_000_000, 0).UTC()
	policy.Now = func() time.Time { return now }
	policy.MaxBackoff = 3 * time.Second

	for i := 0; i < 3; i++ {
		if err := policy.AfterCall(context.Background(), searchKey(), core.ResponseMeta{StatusCode: http.StatusTooManyRequests}); err != nil {
			t.Fatalf("after call %d: %v", i, err)
		}
	}
	state, _ := store.Get(context.Background(), searchKey())
	if state.Attempts != 3 {
		t.Fatalf("expected three throttled attempts, got %d", state.Attempts)
	}
	if got := state.ThrottledUntil.Sub(now); got != 3*time.Second {
		t.Fatalf("expected backoff capped at 3s, got %s", got)
	}

	if err := policy.AfterCall(context.Background(), searchKey(), core.ResponseMeta{StatusCode: http.StatusOK}); err != nil {
		t.Fatalf("after success: %v", err)
	}
	state, _ = store.Get(context.Background(), searchKey())
	if state.Attempts != 0 || state.ThrottledUntil != nil {
		t.Fatalf("expected success to reset state, got %+v", state)
	}
}

func TestThrottledError_ToServiceError(t *testing.T) {
	err := ThrottledError{Service: "search", Color: ColorBlack, RetryAfter: 1500 * time.Millisecond}.ToServiceError()
	if !core.IsRateLimit(err) {
		t.Fatalf("expected rate limit kind, got %s", core.KindOf(err))
	}
	if err.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 code, got %d", err.Code)
	}
	if err.Metadata["retry_after_ms"] != int64(1500) {
		t.Fatalf("expected retry_after_ms metadata, got %#v", err.Metadata["retry_after_ms"])
	}
}

func TestMemoryStateStore_NilStore(t *testing.T) {
	var store *MemoryStateStore
	if _, err := store.Get(context.Background(), searchKey()); err == nil {
		t.Fatalf("expected nil store error")
	}
}
