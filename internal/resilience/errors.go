// Package resilience classifies model-API failures and retries the ones that
// are safe to repeat.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsTransient reports whether an upstream model-API error is worth retrying:
// quota exhaustion, overload, 5xx-style unavailability, or network timeouts.
// Callers also use it to decide between "service unavailable" and "internal
// error" responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// The SDKs surface provider-side throttling as wrapped errors with the
	// status in the message, so match on text as the original service did.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"429",
		"quota",
		"resource_exhausted",
		"resource exhausted",
		"rate limit",
		"503",
		"overloaded",
		"unavailable",
		"deadline exceeded",
		"i/o timeout",
		"connection reset by peer",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}
