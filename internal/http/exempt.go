package httpx

import (
	"fmt"
	"regexp"
	"strings"
)

// rootAssetPattern matches static files served from the site root, such as /app.css or
// /logo.svg. Nested paths never match: assets below the asset prefixes are covered by
// prefix, and anything else with a file extension may be a protected upload or export.
const rootAssetPattern = `^/[^/]+\.(?:js|mjs|css|map|png|jpe?g|gif|svg|ico|webp|avif|woff2?|ttf|eot)$`

// Exemptions decides which paths bypass the access check entirely.
// A path is exempt when it equals one of the exact paths, starts with one of the prefixes,
// or matches one of the patterns. Exemptions is immutable once built.
type Exemptions struct {
	paths    map[string]struct{}
	prefixes []string
	patterns []*regexp.Regexp
}

// DefaultExemptions covers health checks, legal pages, framework internals and static
// assets. The central auth endpoints are added only where they are mounted, see
// AuthRoutePaths.
func DefaultExemptions() *Exemptions {
	e := &Exemptions{paths: make(map[string]struct{})}
	for _, p := range []string{"/healthz", "/readyz", "/favicon.ico", "/robots.txt", "/sitemap.xml", "/terms", "/privacy"} {
		e.paths[p] = struct{}{}
	}
	e.prefixes = []string{"/_next/", "/static/", "/public/"}
	e.patterns = []*regexp.Regexp{regexp.MustCompile(rootAssetPattern)}
	return e
}

// AuthRoutePaths lists the endpoints served by AuthHandlers. They must stay reachable
// without a session, and pending users must reach role selection.
func AuthRoutePaths() []string {
	return []string{LoginPath, CallbackPath, LogoutPath, SelectRolePath, StatusPath}
}

// With returns a copy of e extended by config entries. Entry syntax:
//
//	/exact/path     exact match
//	/prefix/*       prefix match (the trailing '*' is dropped)
//	~^/re(gex)?$    regular expression
func (e *Exemptions) With(entries []string) (*Exemptions, error) {
	out := &Exemptions{
		paths:    make(map[string]struct{}, len(e.paths)+len(entries)),
		prefixes: append([]string(nil), e.prefixes...),
		patterns: append([]*regexp.Regexp(nil), e.patterns...),
	}
	for p := range e.paths {
		out.paths[p] = struct{}{}
	}

	for _, raw := range entries {
		entry := strings.TrimSpace(raw)
		switch {
		case entry == "":
			continue
		case strings.HasPrefix(entry, "~"):
			re, err := regexp.Compile(entry[1:])
			if err != nil {
				return nil, fmt.Errorf("exempt pattern %q: %w", entry[1:], err)
			}
			out.patterns = append(out.patterns, re)
		case strings.HasSuffix(entry, "*"):
			out.prefixes = append(out.prefixes, strings.TrimSuffix(entry, "*"))
		case strings.HasPrefix(entry, "/"):
			out.paths[entry] = struct{}{}
		default:
			return nil, fmt.Errorf("exempt path %q must start with '/'", entry)
		}
	}
	return out, nil
}

// Match reports whether path bypasses the access check.
func (e *Exemptions) Match(path string) bool {
	if e == nil {
		return false
	}
	if _, ok := e.paths[path]; ok {
		return true
	}
	for _, p := range e.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	for _, re := range e.patterns {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// protectedBy reports whether path falls under one of prefixes. An empty prefix list
// protects every path. "/admin" protects "/admin" and "/admin/..." but not "/administrator".
func protectedBy(prefixes []string, path string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if p == "" || path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
