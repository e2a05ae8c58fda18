// Package netutil normalizes the client metadata stored with cookie
// sessions.
package netutil

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"unicode/utf8"
)

const MaxUserAgentLength = 512

// NormalizeIP accepts a bare address or host:port ("192.0.2.4:1234",
// "[2001:db8::1]:443") and returns the address without port or zone. When
// nothing parses, the trimmed input is returned with ok=false.
func NormalizeIP(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	for _, candidate := range hostCandidates(raw) {
		if addr, err := netip.ParseAddr(candidate); err == nil {
			return addr.WithZone("").Unmap().String(), true
		}
	}
	return raw, false
}

func hostCandidates(raw string) []string {
	out := []string{raw}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		out = append(out, host)
	}
	if strings.HasPrefix(raw, "[") {
		if end := strings.LastIndex(raw, "]"); end > 0 {
			out = append(out, raw[1:end])
		}
	}
	if idx := strings.LastIndex(raw, ":"); idx > 0 {
		out = append(out, raw[:idx])
	}
	return out
}

// ClientIP returns the caller address of r. Forwarding headers are only
// honoured when trustProxy is set, in which case the left-most
// X-Forwarded-For entry wins over X-Real-IP.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip, ok := NormalizeIP(first); ok {
				return ip
			}
		}
		if ip, ok := NormalizeIP(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	ip, _ := NormalizeIP(r.RemoteAddr)
	return ip
}

// TruncateUserAgent keeps at most MaxUserAgentLength runes.
func TruncateUserAgent(ua string) string {
	if utf8.RuneCountInString(ua) <= MaxUserAgentLength {
		return ua
	}
	n := 0
	for i := range ua {
		if n == MaxUserAgentLength {
			return ua[:i]
		}
		n++
	}
	return ua
}
