// Package redact scrubs secrets out of any payload before it reaches
// observability/*.jsonl or a control-plane SSE snapshot.
package redact

import (
	"regexp"
)

const truncateLimit = 8000

var (
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._\-]{8,}`)
	skRkPattern   = regexp.MustCompile(`\b(sk|rk)-[A-Za-z0-9_\-]{12,}\b`)
	ghTokenPattern = regexp.MustCompile(`\b(ghp|ghu|gho|ghs|ghr)_[A-Za-z0-9]{20,}\b`)
	jwtPattern    = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\b`)

	sensitiveKeyPattern = regexp.MustCompile(`(?i)(authorization|cookie|.*token.*|.*secret.*|.*password.*|apikey|api_key)`)
)

// String redacts secret-shaped substrings out of s and truncates it to
// the configured limit.
func String(s string) string {
	s = bearerPattern.ReplaceAllString(s, "[REDACTED]")
	s = skRkPattern.ReplaceAllString(s, "[REDACTED]")
	s = ghTokenPattern.ReplaceAllString(s, "[REDACTED]")
	s = jwtPattern.ReplaceAllString(s, "[REDACTED]")
	return Truncate(s)
}

// Truncate caps s at truncateLimit characters, appending a marker noting
// how many characters were dropped.
func Truncate(s string) string {
	r := []rune(s)
	if len(r) <= truncateLimit {
		return s
	}
	dropped := len(r) - truncateLimit
	return string(r[:truncateLimit]) + "…[truncated " + itoa(dropped) + " chars]"
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// Value recursively redacts a decoded JSON-ish value (map[string]any,
// []any, string, or scalar). Object keys matching sensitiveKeyPattern
// have their values replaced outright regardless of content.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return String(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if sensitiveKeyPattern.MatchString(k) {
				out[k] = "[REDACTED]"
				continue
			}
			out[k] = Value(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Value(val)
		}
		return out
	default:
		// Scalars (numbers, bools, nil) carry no secrets; struct values
		// should be marshaled to map[string]any before calling Value.
		return v
	}
}
