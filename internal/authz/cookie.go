package authz

import (
	"net/http"
	"time"

	"cardauth/internal/dto"
)

const (
	cookieBaseName   = "cardauth.session"
	secureCookieName = "__Secure-" + cookieBaseName
)

// CookieConfig controls how the browser session cookie is written.
type CookieConfig struct {
	// Secure is on when the deployment is served over TLS. It switches the
	// cookie to the __Secure- prefixed name, which browsers only accept with
	// the Secure attribute.
	Secure bool
	Domain string
}

func (c CookieConfig) Name() string {
	if c.Secure {
		return secureCookieName
	}
	return cookieBaseName
}

// SetSessionCookie writes the signed session value.
func (r *Resolver) SetSessionCookie(w http.ResponseWriter, s *dto.SessionCookie) {
	if s == nil {
		return
	}
	maxAge := int(time.Until(s.ExpiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     r.cookie.Name(),
		Value:    s.Value,
		Path:     "/",
		Domain:   r.cookie.Domain,
		Expires:  s.ExpiresAt,
		MaxAge:   maxAge,
		Secure:   r.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie in the browser.
func (r *Resolver) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     r.cookie.Name(),
		Value:    "",
		Path:     "/",
		Domain:   r.cookie.Domain,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Secure:   r.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (r *Resolver) cookieValue(req *http.Request) string {
	c, err := req.Cookie(r.cookie.Name())
	if err != nil {
		return ""
	}
	return c.Value
}
