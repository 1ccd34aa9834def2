package core

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ErrorKind is the closed taxonomy every surfaced error belongs to.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuthentication
	KindRateLimit
	KindValidation
	KindNetwork
	KindAPI
	KindCancelled
	KindInternal
)

const (
	ErrorTextAuthentication = "OPS_AUTHENTICATION"
	ErrorTextRateLimited    = "OPS_RATE_LIMITED"
	ErrorTextValidation     = "OPS_VALIDATION"
	ErrorTextNetwork        = "OPS_NETWORK"
	ErrorTextAPI            = "OPS_API_ERROR"
	ErrorTextCancelled      = "OPS_CANCELLED"
	ErrorTextInternal       = "OPS_INTERNAL"
)

const maxErrorDetailBytes = 4 << 10

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindAPI:
		return "api"
	case KindCancelled:
		return "cancelled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// TextCode returns the go-errors text code that carries the kind.
func (k ErrorKind) TextCode() string {
	switch k {
	case KindAuthentication:
		return ErrorTextAuthentication
	case KindRateLimit:
		return ErrorTextRateLimited
	case KindValidation:
		return ErrorTextValidation
	case KindNetwork:
		return ErrorTextNetwork
	case KindAPI:
		return ErrorTextAPI
	case KindCancelled:
		return ErrorTextCancelled
	default:
		return ErrorTextInternal
	}
}

// KindOf recovers the kind of an error produced by this module. Envelopes
// built elsewhere fall back to their go-errors category.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return KindCancelled
		}
		return KindUnknown
	}
	switch strings.TrimSpace(rich.TextCode) {
	case ErrorTextAuthentication:
		return KindAuthentication
	case ErrorTextRateLimited:
		return KindRateLimit
	case ErrorTextValidation:
		return KindValidation
	case ErrorTextNetwork:
		return KindNetwork
	case ErrorTextAPI:
		return KindAPI
	case ErrorTextCancelled:
		return KindCancelled
	case ErrorTextInternal:
		return KindInternal
	}
	switch rich.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return KindAuthentication
	case goerrors.CategoryRateLimit:
		return KindRateLimit
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return KindValidation
	case goerrors.CategoryExternal:
		return KindNetwork
	case goerrors.CategoryInternal:
		return KindInternal
	default:
		return KindUnknown
	}
}

func IsAuthentication(err error) bool { return KindOf(err) == KindAuthentication }

func IsRateLimit(err error) bool { return KindOf(err) == KindRateLimit }

func IsValidation(err error) bool { return KindOf(err) == KindValidation }

func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

func IsAPI(err error) bool { return KindOf(err) == KindAPI }

func IsCancelled(err error) bool { return KindOf(err) == KindCancelled }

func NewAuthenticationError(message string, status int) *goerrors.Error {
	category := goerrors.CategoryAuth
	if status == http.StatusForbidden {
		category = goerrors.CategoryAuthz
	}
	if status == 0 {
		status = http.StatusUnauthorized
	}
	return goerrors.New(message, category).
		WithCode(status).
		WithTextCode(ErrorTextAuthentication)
}

func NewRateLimitError(message string, retryAfter time.Duration) *goerrors.Error {
	if strings.TrimSpace(message) == "" {
		message = "ops: rate limit exceeded"
	}
	err := goerrors.New(message, goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(ErrorTextRateLimited)
	if retryAfter > 0 {
		err.WithMetadata(map[string]any{"retry_after_ms": retryAfter.Milliseconds()})
	}
	return err
}

func NewValidationError(message string, fields ...goerrors.FieldError) *goerrors.Error {
	return goerrors.NewValidation(message, fields...).
		WithCode(http.StatusBadRequest).
		WithTextCode(ErrorTextValidation).
		WithSeverity(goerrors.SeverityError)
}

// NewAPIError describes a non-2xx response outside the dedicated statuses.
func NewAPIError(status int, upstreamCode string, body []byte) *goerrors.Error {
	metadata := map[string]any{"status": status}
	if upstreamCode != "" {
		metadata["upstream_code"] = upstreamCode
	}
	if len(body) > 0 {
		metadata["details"] = truncateDetail(body)
	}
	return goerrors.New("ops: api request failed", goerrors.CategoryExternal).
		WithCode(status).
		WithTextCode(ErrorTextAPI).
		WithMetadata(metadata)
}

func NewNetworkError(source error) *goerrors.Error {
	message := "ops: network error occurred"
	if source == nil {
		return goerrors.New(message, goerrors.CategoryExternal).
			WithCode(http.StatusBadGateway).
			WithTextCode(ErrorTextNetwork)
	}
	return goerrors.Wrap(source, goerrors.CategoryExternal, message).
		WithCode(http.StatusBadGateway).
		WithTextCode(ErrorTextNetwork)
}

func NewCancelledError(source error) *goerrors.Error {
	message := "ops: request cancelled"
	if errors.Is(source, context.DeadlineExceeded) {
		message = "ops: request deadline exceeded"
	}
	if source == nil {
		source = context.Canceled
	}
	return goerrors.Wrap(source, goerrors.CategoryOperation, message).
		WithCode(499).
		WithTextCode(ErrorTextCancelled)
}

func NewInternalError(message string) *goerrors.Error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ErrorTextInternal)
}

// ClassifyResponse maps a received response to the error taxonomy. It returns
// nil for 2xx statuses.
func ClassifyResponse(res TransportResponse) error {
	status := res.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}
	switch status {
	case http.StatusUnauthorized:
		return NewAuthenticationError("ops: invalid or expired token", status)
	case http.StatusForbidden:
		err := NewAuthenticationError("ops: insufficient permissions", status)
		if reason := headerValue(res.Headers, "x-rejection-reason"); reason != "" {
			err.WithMetadata(map[string]any{"rejection_reason": reason})
		}
		return err
	case http.StatusTooManyRequests:
		return NewRateLimitError("ops: rate limit exceeded", retryAfterHeader(res.Headers))
	case http.StatusBadRequest:
		return NewValidationError("ops: invalid request parameters", goerrors.FieldError{
			Field:   "request",
			Message: firstNonEmpty(upstreamMessage(res.Body), "rejected by upstream"),
		})
	default:
		return NewAPIError(status, upstreamCode(res.Body), res.Body)
	}
}

// ClassifyTransportError maps a failure where no response was received. Only
// the caller's own context makes it a cancellation; a transport timeout while
// the caller is still waiting is a network failure.
func ClassifyTransportError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx != nil && ctx.Err() != nil {
		return NewCancelledError(ctx.Err())
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && KindOf(err) != KindUnknown {
		return err
	}
	return NewNetworkError(err)
}

type opsFault struct {
	XMLName xml.Name `xml:"fault"`
	Code    string   `xml:"code"`
	Message string   `xml:"message"`
}

func decodeFault(body []byte) (code string, message string) {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "", ""
	}
	if strings.HasPrefix(trimmed, "{") {
		var payload map[string]any
		if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
			return "", ""
		}
		code = firstNonEmpty(
			StringAt(payload, "code"),
			StringAt(payload, "fault", "code"),
			StringAt(payload, "error", "code"),
		)
		message = firstNonEmpty(
			StringAt(payload, "message"),
			StringAt(payload, "fault", "message"),
			StringAt(payload, "error", "message"),
		)
		return code, message
	}
	if strings.HasPrefix(trimmed, "<") {
		var fault opsFault
		if err := xml.Unmarshal([]byte(trimmed), &fault); err != nil {
			return "", ""
		}
		return strings.TrimSpace(fault.Code), strings.TrimSpace(fault.Message)
	}
	return "", ""
}

func upstreamCode(body []byte) string {
	code, _ := decodeFault(body)
	return code
}

func upstreamMessage(body []byte) string {
	_, message := decodeFault(body)
	return message
}

func truncateDetail(body []byte) string {
	if len(body) > maxErrorDetailBytes {
		return string(body[:maxErrorDetailBytes])
	}
	return string(body)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// statusOf returns the HTTP status an error envelope carries, 0 when none.
func statusOf(err error) int {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return 0
	}
	if status, ok := rich.Metadata["status"].(int); ok {
		return status
	}
	return rich.Code
}
