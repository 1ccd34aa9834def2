package ops_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-command"
	ops "github.com/goliatone/go-epo-ops"
	"github.com/goliatone/go-epo-ops/adapters/gocommand"
	opscommand "github.com/goliatone/go-epo-ops/command"
	"github.com/goliatone/go-epo-ops/core"
	"github.com/goliatone/go-epo-ops/providers/devkit"
	"github.com/goliatone/go-epo-ops/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeOPS struct {
	grants   atomic.Int32
	searches atomic.Int32
	throttle atomic.Bool
}

func (f *fakeOPS) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/3.2/auth/accesstoken", func(w http.ResponseWriter, r *http.Request) {
		f.grants.Add(1)
		user, pass, ok := r.BasicAuth()
		if r.Method != http.MethodPost || !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("unexpected grant form: %v %v", err, r.PostForm)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(devkit.TokenGrantFixture("tok-live", 1199)))
	})
	mux.HandleFunc("/3.2/rest-services/published-data/search", func(w http.ResponseWriter, r *http.Request) {
		n := f.searches.Add(1)
		if r.Header.Get("Authorization") != "Bearer tok-live" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("q") != "computer" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		w.Header().Set("X-Throttling-Control", "busy (search=yellow:5)")
		if f.throttle.Load() && n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"fault":{"code":"CLIENT.RobotDetected","message":"too many"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(devkit.SearchFixture))
	})
	mux.HandleFunc("/3.2/rest-services/published-data/publication/epodoc/EP1000000/claims", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(devkit.ClaimsFixture))
	})
	return mux
}

func newConfig(server *httptest.Server) ops.Config {
	cfg := ops.DefaultConfig()
	cfg.BaseURL = server.URL + "/3.2/rest-services"
	cfg.Auth.TokenURL = server.URL + "/3.2/auth/accesstoken"
	cfg.Auth.ClientID = "key"
	cfg.Auth.ClientSecret = "secret"
	return cfg
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestNew_SearchPatentsEndToEnd(t *testing.T) {
	upstream := &fakeOPS{}
	server := httptest.NewServer(upstream.handler(t))
	defer server.Close()

	registry := prometheus.NewRegistry()
	client, err := ops.New(newConfig(server), ops.WithHTTPClient(server.Client()), ops.WithPrometheus(registry))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	res, err := client.SearchPatents(context.Background(), "computer", ops.SearchOptions{})
	if err != nil {
		t.Fatalf("search patents: %v", err)
	}
	if res.Status != http.StatusOK || res.Data.Total != 2 || len(res.Data.Results) != 2 {
		t.Fatalf("unexpected search response %#v", res)
	}
	if res.Data.Results[0].ID != "1234567A1" || res.Data.Results[1].ID != "7654321B1" {
		t.Fatalf("unexpected result ids %q %q", res.Data.Results[0].ID, res.Data.Results[1].ID)
	}

	if _, err := client.SearchPatents(context.Background(), "computer", ops.SearchOptions{}); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if upstream.grants.Load() != 1 {
		t.Fatalf("expected the token to be reused, got %d grants", upstream.grants.Load())
	}
	if got := testutil.CollectAndCount(registry, "ops_search_patents_total"); got != 1 {
		t.Fatalf("expected search counter series, got %d", got)
	}
}

func TestNew_RetriesRateLimitedCall(t *testing.T) {
	upstream := &fakeOPS{}
	upstream.throttle.Store(true)
	server := httptest.NewServer(upstream.handler(t))
	defer server.Close()

	clk := &clock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	policy := core.DefaultRetryPolicy()
	policy.InitialDelay = time.Millisecond
	policy.MaxDelay = 5 * time.Millisecond
	var retries []time.Duration
	policy.OnRetry = func(_ int, delay time.Duration, err error) {
		if !ops.IsRateLimit(err) {
			t.Errorf("expected rate limit retry, got %v", err)
		}
		retries = append(retries, delay)
		// Let the throttle window recorded for the 429 pass.
		clk.Advance(2 * time.Second)
	}

	client, err := ops.New(newConfig(server),
		ops.WithHTTPClient(server.Client()),
		ops.WithClock(clk.Now),
		ops.WithClientOptions(core.WithRetryPolicy(policy)),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	res, err := client.SearchPatents(context.Background(), "computer", ops.SearchOptions{})
	if err != nil {
		t.Fatalf("search patents: %v", err)
	}
	if res.Data.Total != 2 {
		t.Fatalf("unexpected total %d", res.Data.Total)
	}
	if upstream.searches.Load() != 2 {
		t.Fatalf("expected two upstream searches, got %d", upstream.searches.Load())
	}
	if len(retries) != 1 {
		t.Fatalf("expected one retry, got %v", retries)
	}
}

func TestNew_BadCredentialsSurfaceAuthentication(t *testing.T) {
	upstream := &fakeOPS{}
	server := httptest.NewServer(upstream.handler(t))
	defer server.Close()

	cfg := newConfig(server)
	cfg.Auth.ClientSecret = "wrong"
	client, err := ops.New(cfg, ops.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.SearchPatents(context.Background(), "computer", ops.SearchOptions{})
	if !ops.IsAuthentication(err) {
		t.Fatalf("expected authentication kind, got %s (%v)", ops.KindOf(err), err)
	}
	if upstream.searches.Load() != 0 {
		t.Fatalf("expected no resource request without a token")
	}
	if upstream.grants.Load() != 1 {
		t.Fatalf("expected a single grant attempt, got %d", upstream.grants.Load())
	}
}

func TestNew_InvalidInputNeverReachesUpstream(t *testing.T) {
	transport := devkit.NewFakeTransportAdapter("rest")
	client, err := ops.New(ops.DefaultConfig(), ops.WithTransport(transport))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = client.GetClaims(context.Background(), ops.PatentReference{Kind: "invalid-kind", Format: "docdb", Number: "EP1000000"})
	if !ops.IsValidation(err) {
		t.Fatalf("expected validation kind, got %s", ops.KindOf(err))
	}
	if transport.Calls() != 0 {
		t.Fatalf("expected no transport calls, got %d", transport.Calls())
	}
}

func TestNew_ThrottleConfigInstallsLimiter(t *testing.T) {
	cfg := ops.DefaultConfig()
	cfg.Throttle.RequestsPerSecond = 5
	cfg.Throttle.Burst = 2
	client, err := ops.New(cfg, ops.WithTransport(devkit.NewFakeTransportAdapter("rest")))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	deps := client.Dependencies()
	if deps.Limiter == nil {
		t.Fatalf("expected limiter from throttle config")
	}
	if deps.RateLimitPolicy == nil || deps.TokenSource == nil {
		t.Fatalf("expected rate limit policy and token manager to be wired")
	}

	unpaced, err := ops.New(ops.DefaultConfig(), ops.WithTransport(devkit.NewFakeTransportAdapter("rest")))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if unpaced.Dependencies().Limiter != nil {
		t.Fatalf("expected no limiter without throttle config")
	}
}

func TestFacade_RegistersQueriesAndCommandsOnDispatcher(t *testing.T) {
	upstream := &fakeOPS{}
	server := httptest.NewServer(upstream.handler(t))
	defer server.Close()

	client, err := ops.New(newConfig(server), ops.WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	facade, err := ops.NewClientFacade(client)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	if facade.Queries().GetClaims == nil || facade.Queries().ConvertNumber == nil {
		t.Fatalf("expected queriers to be wired")
	}
	if facade.Commands().RefreshToken == nil || facade.Commands().ResetThrottle == nil {
		t.Fatalf("expected operational commands to be wired")
	}

	subscriptions, err := facade.Register(gocommand.NewRegistryAdapter(command.NewRegistry()))
	if err != nil {
		t.Fatalf("register facade: %v", err)
	}
	defer gocommand.Unsubscribe(subscriptions)

	claims, err := gocommand.Query[query.GetClaimsMessage, core.Claims](context.Background(), query.GetClaimsMessage{
		Reference: ops.PatentReference{Kind: "publication", Format: "epodoc", Number: "EP1000000"},
	})
	if err != nil {
		t.Fatalf("dispatch claims: %v", err)
	}
	if len(claims.Independent) != 2 || len(claims.Dependent) != 1 {
		t.Fatalf("unexpected claims %#v", claims)
	}

	if err := gocommand.Dispatch(context.Background(), opscommand.RefreshTokenMessage{}); err != nil {
		t.Fatalf("dispatch token refresh: %v", err)
	}
	if upstream.grants.Load() != 2 {
		t.Fatalf("expected a forced second grant, got %d", upstream.grants.Load())
	}

	if _, err := ops.NewFacade(nil); err == nil {
		t.Fatalf("expected nil reader to be rejected")
	}
}
