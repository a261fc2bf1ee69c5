package httpx

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ReturnURLPolicy decides where the central login may send a user afterwards.
type ReturnURLPolicy struct {
	// BaseDomain is the platform domain; it and its subdomains are accepted.
	BaseDomain string
	// Origins are additional accepted scheme://host[:port] values, e.g. the dev portal URLs.
	Origins []string
	// Fallback is used for rejected or missing return URLs and as the base for relative paths.
	Fallback string
}

// Resolve returns raw when it is a safe destination and Fallback otherwise.
// Relative paths are resolved against Fallback.
func (p ReturnURLPolicy) Resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return p.Fallback
	}

	if strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") && !strings.HasPrefix(raw, "/\\") {
		return strings.TrimRight(p.Fallback, "/") + raw
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" || u.User != nil {
		return p.Fallback
	}

	origin := strings.ToLower(u.Scheme + "://" + u.Host)
	for _, o := range p.Origins {
		if strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return u.String()
		}
	}

	if p.hostAllowed(strings.ToLower(u.Hostname())) {
		return u.String()
	}
	return p.Fallback
}

// hostAllowed accepts the base domain itself and subdomains that share its registrable
// domain. A base domain that is itself a public suffix admits only exact matches.
func (p ReturnURLPolicy) hostAllowed(host string) bool {
	base := strings.ToLower(strings.TrimSpace(p.BaseDomain))
	if base == "" || host == "" {
		return false
	}
	if host == base {
		return true
	}
	if !strings.HasSuffix(host, "."+base) {
		return false
	}
	hostReg, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	baseReg, err := publicsuffix.EffectiveTLDPlusOne(base)
	if err != nil {
		return false
	}
	return hostReg == baseReg
}
