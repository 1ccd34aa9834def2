package core

import (
	"strconv"
	"strings"
	"time"
)

// HeaderValue looks up a header case-insensitively in a flattened header map.
func HeaderValue(headers map[string]string, key string) string {
	return headerValue(headers, key)
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// ParseRetryAfter reads a Retry-After value given either in seconds or as an
// HTTP date relative to now.
func ParseRetryAfter(raw string, now time.Time) (time.Duration, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds <= 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z} {
		if retryAt, err := time.Parse(layout, raw); err == nil {
			if retryAt.After(now) {
				return retryAt.Sub(now), true
			}
			return 0, false
		}
	}
	return 0, false
}

func retryAfterHeader(headers map[string]string) time.Duration {
	delay, _ := ParseRetryAfter(headerValue(headers, "retry-after"), time.Now().UTC())
	return delay
}
