package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-epo-ops/core"
	goerrors "github.com/goliatone/go-errors"
)

const KindREST = "rest"

const defaultRESTClientTimeout = 30 * time.Second
const defaultRESTResponseBodyLimit int64 = 10 << 20 // 10 MiB
const defaultUserAgent = "go-epo-ops"

const (
	metadataAdapter            = "adapter"
	metadataStatusCode         = "status_code"
	metadataBodyTruncated      = "body_truncated"
	metadataResponseLimitBytes = "response_limit_b"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RESTAdapter sends requests over net/http. It reports every received
// response, whatever its status; only failures to obtain a response are
// returned as errors.
type RESTAdapter struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewRESTAdapter(client HTTPDoer) *RESTAdapter {
	if client == nil {
		client = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	return &RESTAdapter{
		Client:               client,
		DefaultHeaders:       map[string]string{"User-Agent": defaultUserAgent},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
	}
}

func (*RESTAdapter) Kind() string {
	return KindREST
}

func (a *RESTAdapter) Do(ctx context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	if a == nil || a.Client == nil {
		return core.TransportResponse{}, transportError(
			"transport: rest adapter requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{metadataAdapter: KindREST},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	target, err := requestURL(req)
	if err != nil {
		return core.TransportResponse{}, err
	}
	httpReq, err := a.newHTTPRequest(ctx, req, target)
	if err != nil {
		return core.TransportResponse{}, err
	}

	startedAt := time.Now().UTC()
	httpRes, err := a.Client.Do(httpReq)
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{metadataAdapter: KindREST, "method": httpReq.Method, "url": redactedURL(target)},
		)
	}
	defer httpRes.Body.Close()

	res, err := readResponse(httpRes, resolveResponseBodyLimit(req.MaxResponseBodyBytes, a.MaxResponseBodyBytes))
	if err != nil {
		return core.TransportResponse{}, err
	}
	res.Metadata["duration_ms"] = time.Since(startedAt).Milliseconds()
	return res, nil
}

// requestURL resolves the absolute target with the request query merged into
// any query already on the URL.
func requestURL(req core.TransportRequest) (*url.URL, error) {
	raw := strings.TrimSpace(req.URL)
	target, err := url.Parse(raw)
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryInternal,
			"transport: invalid request url",
			http.StatusInternalServerError,
			map[string]any{metadataAdapter: KindREST, "url": raw},
		)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, transportError(
			"transport: absolute request url is required",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{metadataAdapter: KindREST, "url": target.String()},
		)
	}
	if len(req.Query) > 0 {
		values := target.Query()
		for key, value := range req.Query {
			if key = strings.TrimSpace(key); key != "" {
				values.Set(key, strings.TrimSpace(value))
			}
		}
		target.RawQuery = values.Encode()
	}
	return target, nil
}

func (a *RESTAdapter) newHTTPRequest(ctx context.Context, req core.TransportRequest, target *url.URL) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, transportWrapError(
			err,
			goerrors.CategoryInternal,
			"transport: create http request",
			http.StatusInternalServerError,
			map[string]any{metadataAdapter: KindREST, "method": method, "url": redactedURL(target)},
		)
	}
	setHeaders(httpReq.Header, a.DefaultHeaders)
	setHeaders(httpReq.Header, req.Headers)
	return httpReq, nil
}

func setHeaders(dst http.Header, src map[string]string) {
	for key, value := range src {
		if key = strings.TrimSpace(key); key != "" {
			dst.Set(key, strings.TrimSpace(value))
		}
	}
}

// readResponse reads at most limit bytes of the body. An error status keeps
// its classification when the body overflows: the body is cut at the limit
// and marked truncated. A successful answer that overflows is unusable and
// fails as a network error.
func readResponse(httpRes *http.Response, limit int64) (core.TransportResponse, error) {
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		return core.TransportResponse{}, transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{metadataAdapter: KindREST, metadataStatusCode: httpRes.StatusCode},
		)
	}

	res := core.TransportResponse{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       payload,
		Metadata:   map[string]any{"kind": KindREST},
	}
	if int64(len(payload)) <= limit {
		return res, nil
	}
	if httpRes.StatusCode >= 200 && httpRes.StatusCode <= 299 {
		return core.TransportResponse{}, transportError(
			fmt.Sprintf("transport: response body exceeds limit of %d bytes", limit),
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{
				metadataAdapter:            KindREST,
				metadataStatusCode:         httpRes.StatusCode,
				metadataResponseLimitBytes: limit,
			},
		)
	}
	res.Body = payload[:limit]
	res.Metadata[metadataBodyTruncated] = true
	res.Metadata[metadataResponseLimitBytes] = limit
	return res, nil
}

func flattenHeaders(headers http.Header) map[string]string {
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, adapterLimit int64) int64 {
	switch {
	case requestLimit > 0:
		return requestLimit
	case adapterLimit > 0:
		return adapterLimit
	default:
		return defaultRESTResponseBodyLimit
	}
}

// redactedURL drops the query string, which may carry search terms, from
// error metadata.
func redactedURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	copied := *u
	copied.RawQuery = ""
	copied.User = nil
	return copied.String()
}

var _ core.TransportAdapter = (*RESTAdapter)(nil)
