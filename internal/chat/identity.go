package chat

import (
	"net/http"
	"strings"
)

// UnknownClient is the identifier used when no client address header is present.
// All such requests share one quota.
const UnknownClient = "unknown"

// ClientIdentifier derives the rate limit identity of a request from proxy
// headers: the first X-Forwarded-For entry, then X-Real-IP, then UnknownClient.
func ClientIdentifier(h http.Header) string {
	if fwd := h.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(h.Get("X-Real-IP")); real != "" {
		return real
	}
	return UnknownClient
}
