package devkit

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/goliatone/go-epo-ops/core"
)

func TestFakeTransportAdapter_ReplaysScriptsAndRepeatsLast(t *testing.T) {
	adapter := NewFakeTransportAdapter(" REST ",
		JSONResponse(http.StatusTooManyRequests, `{}`),
		OK(ClaimsFixture),
	)
	if adapter.Kind() != "rest" {
		t.Fatalf("expected normalized kind, got %q", adapter.Kind())
	}

	statuses := []int{}
	for i := 0; i < 3; i++ {
		res, err := adapter.Do(context.Background(), core.TransportRequest{
			Method:  http.MethodGet,
			URL:     "https://ops.example.test/claims",
			Headers: map[string]string{"Accept": "application/json"},
		})
		if err != nil {
			t.Fatalf("do %d: %v", i, err)
		}
		statuses = append(statuses, res.StatusCode)
	}
	if statuses[0] != http.StatusTooManyRequests || statuses[1] != http.StatusOK || statuses[2] != http.StatusOK {
		t.Fatalf("unexpected status sequence %v", statuses)
	}
	if adapter.Calls() != 3 {
		t.Fatalf("expected three recorded calls, got %d", adapter.Calls())
	}

	requests := adapter.Requests()
	requests[0].Headers["Accept"] = "mutated"
	if adapter.Requests()[0].Headers["Accept"] != "application/json" {
		t.Fatalf("recorded requests must be copies")
	}
}

func TestFakeTransportAdapter_FailureAndDelay(t *testing.T) {
	boom := errors.New("connection reset")
	adapter := NewFakeTransportAdapter("rest", Failure(boom))
	if _, err := adapter.Do(context.Background(), core.TransportRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected scripted failure, got %v", err)
	}

	slow := NewFakeTransportAdapter("rest", OK(`{}`))
	slow.Delay = time.Second
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	if _, err := slow.Do(ctx, core.TransportRequest{}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected delay to honour context, got %v", err)
	}
}

func TestStaticTokenSource(t *testing.T) {
	source := &StaticTokenSource{Token: "tok"}
	if err := ValidateTokenSourceConformance(context.Background(), source); err != nil {
		t.Fatalf("conformance: %v", err)
	}
	source.Invalidate()
	source.Invalidate()
	if source.Invalidations() != 2 {
		t.Fatalf("expected two invalidations, got %d", source.Invalidations())
	}
	if err := ValidateTokenSourceConformance(context.Background(), &StaticTokenSource{}); err == nil {
		t.Fatalf("expected empty token to fail conformance")
	}
}

func TestValidateTransportAdapterConformance(t *testing.T) {
	if err := ValidateTransportAdapterConformance(context.Background(), nil, core.TransportRequest{}); err == nil {
		t.Fatalf("expected nil adapter to fail")
	}
	adapter := NewFakeTransportAdapter("rest")
	if err := ValidateTransportAdapterConformance(context.Background(), adapter, core.TransportRequest{}); err != nil {
		t.Fatalf("conformance: %v", err)
	}
}
