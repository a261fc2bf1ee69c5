// Package sessioncookie builds the cookies that carry a session ID across portals.
package sessioncookie

import (
	"net/http"
	"strings"
	"time"
)

// Name is the cookie every portal reads the session ID from.
const Name = "session_id"

// IsSecure reports whether the request reached us over TLS, directly or via a proxy.
func IsSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// New returns an HttpOnly cookie scoped to domain that expires at expiresAt.
// An empty domain scopes the cookie to the request host.
func New(r *http.Request, name, value, domain string, expiresAt time.Time) *http.Cookie {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   IsSecure(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

// Clear returns a cookie that deletes name. It mirrors the attributes used by New
// so browsers match it.
func Clear(r *http.Request, name, domain string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   domain,
		HttpOnly: true,
		Secure:   IsSecure(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	}
}
