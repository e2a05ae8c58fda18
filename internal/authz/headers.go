package authz

import (
	"net/http"
	"strings"
)

// HeaderVariants are tried in order. Some proxies rename or lowercase the
// canonical Authorization header, and others strip it and forward a copy as
// X-Authorization.
var HeaderVariants = []string{"Authorization", "authorization", "X-Authorization", "x-authorization"}

// HeaderSource yields the raw authorization header value of a request, or
// "" when none is present.
type HeaderSource interface {
	AuthHeader() string
}

type httpHeaders http.Header

// FromHeaders adapts an http.Header. Both the canonical lookup and the raw
// map key are checked so non-canonical keys set by middleware are found.
func FromHeaders(h http.Header) HeaderSource { return httpHeaders(h) }

func (h httpHeaders) AuthHeader() string {
	for _, name := range HeaderVariants {
		if vs := h[name]; len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
			return strings.TrimSpace(vs[0])
		}
		if v := strings.TrimSpace(http.Header(h).Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// BearerToken extracts the token of a "Bearer <token>" header value. The
// scheme is matched case-insensitively.
func BearerToken(src HeaderSource) (string, bool) {
	raw := src.AuthHeader()
	const prefix = "bearer "
	if len(raw) <= len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(raw[len(prefix):])
	return tok, tok != ""
}
