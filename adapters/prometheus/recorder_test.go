package prometheus

import (
	"context"
	"testing"

	"github.com/goliatone/go-epo-ops/core"
	"github.com/goliatone/go-epo-ops/providers/devkit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"ops.search_patents.total":   "ops_search_patents_total",
		"ops.get_claims.duration_ms": "ops_get_claims_duration_ms",
		"  Ops..Weird--Name. ":       "ops_weird_name",
		"9lives":                     "_9lives",
		"":                           "",
	}
	for input, want := range cases {
		if got := sanitizeName(input); got != want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestRecorder_CountsAndObservesWithFixedLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	recorder := NewRecorder(registry)
	ctx := context.Background()

	tags := map[string]string{"operation": "search_patents", "status": "success", "ignored": "x"}
	recorder.IncCounter(ctx, "ops.search_patents.total", 1, tags)
	recorder.IncCounter(ctx, "ops.search_patents.total", 2, tags)
	recorder.ObserveHistogram(ctx, "ops.search_patents.duration_ms", 42, tags)

	counter := recorder.counter("ops.search_patents.total")
	if got := testutil.ToFloat64(counter.WithLabelValues("search_patents", "success", "")); got != 3 {
		t.Fatalf("expected counter 3, got %v", got)
	}
	if got := testutil.CollectAndCount(registry, "ops_search_patents_duration_ms"); got != 1 {
		t.Fatalf("expected one histogram series, got %d", got)
	}

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, family := range families {
		names[family.GetName()] = true
		for _, metric := range family.GetMetric() {
			if len(metric.GetLabel()) != 3 {
				t.Fatalf("expected three labels on %s, got %d", family.GetName(), len(metric.GetLabel()))
			}
		}
	}
	if !names["ops_search_patents_total"] || !names["ops_search_patents_duration_ms"] {
		t.Fatalf("unexpected metric families %v", names)
	}
}

func TestRecorder_SharesCollectorsAcrossRecorders(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := NewRecorder(registry, WithNamespace("epo"))
	second := NewRecorder(registry, WithNamespace("epo"))
	ctx := context.Background()
	tags := map[string]string{"operation": "get_family", "status": "failure", "error_kind": "rate_limit"}

	first.IncCounter(ctx, "ops.get_family.total", 1, tags)
	second.IncCounter(ctx, "ops.get_family.total", 1, tags)

	counter := first.counter("ops.get_family.total")
	if got := testutil.ToFloat64(counter.WithLabelValues("get_family", "failure", "rate_limit")); got != 2 {
		t.Fatalf("expected shared counter 2, got %v", got)
	}
}

func TestRecorder_WiredIntoClient(t *testing.T) {
	registry := prometheus.NewRegistry()
	client, err := core.NewClient(core.DefaultConfig(),
		core.WithTransport(devkit.NewFakeTransportAdapter("rest", devkit.OK(devkit.FamilyFixture))),
		core.WithTokenSource(&devkit.StaticTokenSource{Token: "tok"}),
		core.WithMetricsRecorder(NewRecorder(registry)),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	members, err := client.GetFamily(context.Background(), core.PatentReference{
		Kind:   core.ReferencePublication,
		Format: core.FormatDocdb,
		Number: "EP.1000000.A1",
	})
	if err != nil {
		t.Fatalf("get family: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected two family members, got %d", len(members))
	}
	if got := testutil.CollectAndCount(registry, "ops_get_family_total"); got != 1 {
		t.Fatalf("expected one counter series, got %d", got)
	}
}

func TestRecorder_NilAndNegativeAreIgnored(t *testing.T) {
	var recorder *Recorder
	recorder.IncCounter(context.Background(), "ops.x.total", 1, nil)
	recorder.ObserveHistogram(context.Background(), "ops.x.duration_ms", 1, nil)

	registry := prometheus.NewRegistry()
	live := NewRecorder(registry)
	live.IncCounter(context.Background(), "ops.x.total", -1, nil)
	live.IncCounter(context.Background(), "   ", 1, nil)
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) != 0 {
		t.Fatalf("expected nothing registered, got %d families", len(families))
	}
}
