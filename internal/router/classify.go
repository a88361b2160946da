package router

import (
	"errors"
	"strings"

	"github.com/nextlevelbuilder/drost/internal/providers"
)

// classify maps an adapter failure to a FailureClass and, for
// retryable classes, the cooldown duration in seconds. A zero
// cooldown with retryable=false means the failure is fatal.
func classify(err error, p Policy) (class FailureClass, cooldownSeconds int, retryable bool) {
	var httpErr *providers.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Status == 401:
			return ClassAuth, p.AuthCooldownSeconds, true
		case httpErr.Status == 403:
			return ClassPermission, p.AuthCooldownSeconds, true
		case httpErr.Status == 429:
			return ClassRateLimit, p.RateLimitCooldownSeconds, true
		case httpErr.Status >= 500:
			return ClassServerError, p.ServerErrorCooldownSeconds, true
		case httpErr.Status == 400 || httpErr.Status == 404 || httpErr.Status == 409 || httpErr.Status == 422:
			return ClassFatalRequest, 0, false
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "abort"):
		return ClassTimeout, p.ServerErrorCooldownSeconds, true
	case strings.Contains(msg, "econn") || strings.Contains(msg, "network") ||
		strings.Contains(msg, "enotfound") || strings.Contains(msg, "ehostunreach"):
		return ClassNetwork, p.ServerErrorCooldownSeconds, true
	case strings.Contains(msg, "validation") || strings.Contains(msg, "malformed") || strings.Contains(msg, "bad-request"):
		return ClassFatalRequest, 0, false
	}

	return ClassServerError, p.ServerErrorCooldownSeconds, true
}
