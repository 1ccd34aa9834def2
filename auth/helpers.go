package auth

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-epo-ops/core"
	goerrors "github.com/goliatone/go-errors"
)

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// parseExpiresIn accepts expires_in as a JSON number or a numeric string; OPS
// sends the latter.
func parseExpiresIn(raw json.RawMessage) (int64, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, false
	}
	if strings.HasPrefix(trimmed, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, false
		}
		trimmed = strings.TrimSpace(text)
	}
	if seconds, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return seconds, true
	}
	if seconds, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return int64(seconds), true
	}
	return 0, false
}

func wrapAuthError(source error, message string) *goerrors.Error {
	return goerrors.Wrap(source, goerrors.CategoryAuth, message).
		WithCode(http.StatusUnauthorized).
		WithTextCode(core.ErrorTextAuthentication)
}
