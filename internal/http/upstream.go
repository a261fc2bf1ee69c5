package httpx

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// Identity headers forwarded to upstream portal apps. Client-supplied values are dropped.
const (
	HeaderPortalUser = "X-Portal-User"
	HeaderPortalRole = "X-Portal-Role"
)

// NewUpstreamProxy forwards allowed requests to the portal's application server and
// passes the checked identity along in headers.
func NewUpstreamProxy(target string, logger *slog.Logger) (http.Handler, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse upstream %q: %w", target, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("upstream %q must be an absolute http(s) URL", target)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(u)
			pr.SetXForwarded()
			pr.Out.Host = pr.In.Host
			pr.Out.Header.Del(HeaderPortalUser)
			pr.Out.Header.Del(HeaderPortalRole)
			if s, ok := SessionFromContext(pr.In.Context()); ok && s.Authenticated {
				pr.Out.Header.Set(HeaderPortalUser, s.UserID)
				pr.Out.Header.Set(HeaderPortalRole, s.Role.String())
			}
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.ErrorContext(r.Context(), "upstream request failed",
				"upstream", u.Host, "path", r.URL.Path, "error", err)
			WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "upstream_unavailable"})
		},
	}, nil
}
