package devkit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-epo-ops/core"
)

// TransportScript is one scripted answer. Err simulates a request that got no
// response at all.
type TransportScript struct {
	Response core.TransportResponse
	Err      error
}

// FakeTransportAdapter replays scripted answers in order and records every
// request it receives. Once the scripts run out the last one repeats.
type FakeTransportAdapter struct {
	mu       sync.Mutex
	kind     string
	scripts  []TransportScript
	requests []core.TransportRequest

	// Delay holds each answer back, honouring context cancellation.
	Delay time.Duration
}

func NewFakeTransportAdapter(kind string, scripts ...TransportScript) *FakeTransportAdapter {
	return &FakeTransportAdapter{
		kind:    strings.TrimSpace(strings.ToLower(kind)),
		scripts: append([]TransportScript(nil), scripts...),
	}
}

// JSONResponse scripts a response with the given status and JSON body.
func JSONResponse(status int, body string) TransportScript {
	return TransportScript{Response: core.TransportResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}}
}

// OK scripts a 200 response carrying body.
func OK(body string) TransportScript {
	return JSONResponse(http.StatusOK, body)
}

// Failure scripts a request that never got a response.
func Failure(err error) TransportScript {
	return TransportScript{Err: err}
}

func (a *FakeTransportAdapter) Kind() string {
	if a == nil {
		return ""
	}
	return a.kind
}

func (a *FakeTransportAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil {
		return core.TransportResponse{}, fmt.Errorf("devkit: fake transport adapter is nil")
	}
	a.mu.Lock()
	a.requests = append(a.requests, cloneTransportRequest(req))
	index := len(a.requests) - 1
	script, ok := a.scriptAt(index)
	delay := a.Delay
	a.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return core.TransportResponse{}, ctx.Err()
		case <-timer.C:
		}
	}
	if !ok {
		return core.TransportResponse{
			StatusCode: http.StatusOK,
			Headers:    map[string]string{},
			Metadata:   map[string]any{"kind": a.kind},
		}, nil
	}
	return cloneTransportResponse(script.Response), script.Err
}

func (a *FakeTransportAdapter) scriptAt(index int) (TransportScript, bool) {
	if index < len(a.scripts) {
		return a.scripts[index], true
	}
	if len(a.scripts) > 0 {
		return a.scripts[len(a.scripts)-1], true
	}
	return TransportScript{}, false
}

func (a *FakeTransportAdapter) Requests() []core.TransportRequest {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]core.TransportRequest, 0, len(a.requests))
	for _, item := range a.requests {
		out = append(out, cloneTransportRequest(item))
	}
	return out
}

// Calls reports how many requests were received.
func (a *FakeTransportAdapter) Calls() int {
	if a == nil {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

func cloneTransportRequest(in core.TransportRequest) core.TransportRequest {
	out := core.TransportRequest{
		Method:               in.Method,
		URL:                  in.URL,
		Headers:              map[string]string{},
		Query:                map[string]string{},
		Body:                 append([]byte(nil), in.Body...),
		Metadata:             map[string]any{},
		Timeout:              in.Timeout,
		MaxResponseBodyBytes: in.MaxResponseBodyBytes,
	}
	for key, value := range in.Headers {
		out.Headers[key] = value
	}
	for key, value := range in.Query {
		out.Query[key] = value
	}
	for key, value := range in.Metadata {
		out.Metadata[key] = value
	}
	return out
}

func cloneTransportResponse(in core.TransportResponse) core.TransportResponse {
	out := core.TransportResponse{
		StatusCode: in.StatusCode,
		Headers:    map[string]string{},
		Body:       append([]byte(nil), in.Body...),
		Metadata:   map[string]any{},
	}
	for key, value := range in.Headers {
		out.Headers[key] = value
	}
	for key, value := range in.Metadata {
		out.Metadata[key] = value
	}
	return out
}

// StaticTokenSource hands out a fixed bearer token and counts invalidations.
type StaticTokenSource struct {
	mu          sync.Mutex
	Token       string
	Err         error
	invalidated int
}

func (s *StaticTokenSource) EnsureValid(context.Context) (core.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return core.AccessToken{}, s.Err
	}
	return core.AccessToken{
		Value:     s.Token,
		TokenType: "Bearer",
		ExpiresIn: time.Hour,
		IssuedAt:  time.Now().UTC(),
	}, nil
}

func (s *StaticTokenSource) AuthorizationHeaderValue(ctx context.Context) (string, error) {
	token, err := s.EnsureValid(ctx)
	if err != nil {
		return "", err
	}
	return "Bearer " + token.Value, nil
}

func (s *StaticTokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidated++
}

func (s *StaticTokenSource) Invalidations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidated
}

var (
	_ core.TransportAdapter = (*FakeTransportAdapter)(nil)
	_ core.TokenSource      = (*StaticTokenSource)(nil)
	_ core.TokenInvalidator = (*StaticTokenSource)(nil)
)
