package httpx

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/medportal/portalgate/internal/domain/access"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/ports"
	"github.com/medportal/portalgate/internal/service"
	"github.com/medportal/portalgate/internal/sessioncookie"
)

// Central auth endpoint paths, hosted by the web portal.
const (
	LoginPath      = "/auth/login"
	CallbackPath   = "/auth/callback"
	LogoutPath     = "/auth/logout"
	SelectRolePath = "/auth/select-role"
	StatusPath     = "/auth/status"
)

const (
	stateCookie    = "oauth_state"
	nonceCookie    = "oauth_nonce"
	returnToCookie = "post_login_redirect"
	flowCookieTTL  = 10 * time.Minute
)

// AuthService is the part of service.AuthService the handlers depend on.
type AuthService interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	SelectRole(ctx context.Context, sessionID string, role domainauth.Role) (*domainauth.Session, error)
	Logout(ctx context.Context, sessionID string) error
}

var _ AuthService = (*service.AuthService)(nil)

// AuthHandlers serves the central login, callback, logout and role-selection endpoints.
type AuthHandlers struct {
	Svc      AuthService
	Registry *access.Registry
	Env      access.Environment
	Returns  ReturnURLPolicy
	// CallbackURL is the absolute URL of CallbackPath registered with the IdP.
	CallbackURL string
	// CookieDomain scopes the session cookie to every portal subdomain.
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login starts the IdP flow.
// GET /auth/login?returnTo=<absolute portal URL>&portal=<portal id>.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	returnTo := h.Returns.Resolve(q.Get("returnTo"))

	result, err := h.Svc.BeginLogin(r.Context(), h.CallbackURL)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin login failed", "error", err, "portal", q.Get("portal"))
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed"})
		return
	}

	expires := time.Now().Add(flowCookieTTL)
	http.SetCookie(w, sessioncookie.New(r, stateCookie, result.State, "", expires))
	http.SetCookie(w, sessioncookie.New(r, nonceCookie, result.Nonce, "", expires))
	http.SetCookie(w, sessioncookie.New(r, returnToCookie, returnTo, "", expires))

	http.Redirect(w, r, result.AuthURL, http.StatusFound)
}

// Callback completes the IdP flow and issues the cross-portal session cookie.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_code", Message: "authorization code is required"})
		return
	}
	if state == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_state", Message: "state parameter is required"})
		return
	}

	sc, err := r.Cookie(stateCookie)
	if err != nil || subtle.ConstantTimeCompare([]byte(sc.Value), []byte(state)) != 1 {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_state", Message: "invalid or missing state parameter"})
		return
	}
	nc, err := r.Cookie(nonceCookie)
	if err != nil || nc.Value == "" {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "missing_nonce", Message: "missing nonce"})
		return
	}

	result, err := h.Svc.CompleteLogin(r.Context(), service.CompleteLoginInput{
		Code:  code,
		State: state,
		Nonce: nc.Value,
	})
	if err != nil {
		h.logger().ErrorContext(r.Context(), "complete login failed", "error", err)
		WriteError(w, ErrorParams{Code: http.StatusBadGateway, ErrCode: "login_completion_failed", Message: "login could not be completed"})
		return
	}

	sess := result.Session
	http.SetCookie(w, sessioncookie.New(r, sessioncookie.Name, sess.ID, h.CookieDomain, sess.ExpiresAt))
	http.SetCookie(w, sessioncookie.Clear(r, stateCookie, ""))
	http.SetCookie(w, sessioncookie.Clear(r, nonceCookie, ""))

	returnTo := h.Returns.Fallback
	if rc, rcErr := r.Cookie(returnToCookie); rcErr == nil {
		returnTo = h.Returns.Resolve(rc.Value)
		http.SetCookie(w, sessioncookie.Clear(r, returnToCookie, ""))
	}
	http.Redirect(w, r, returnTo, http.StatusFound)
}

// Logout deletes the server-side session and clears the shared cookie.
// POST /auth/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessioncookie.Name); err == nil {
		if logoutErr := h.Svc.Logout(r.Context(), c.Value); logoutErr != nil {
			h.logger().WarnContext(r.Context(), "logout failed", "error", logoutErr)
		}
	}
	http.SetCookie(w, sessioncookie.Clear(r, sessioncookie.Name, h.CookieDomain))

	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": LoginPath})
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// RoleOptions lists the roles a pending user may choose from.
// GET /auth/select-role.
func (h *AuthHandlers) RoleOptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	roles := make([]string, 0, len(domainauth.SelectableRoles()))
	for _, role := range domainauth.SelectableRoles() {
		roles = append(roles, role.String())
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"pending_role_selection": sess.NeedsRoleSelection(),
		"roles":                  roles,
	})
}

type selectRoleRequest struct {
	Role string `json:"role"`
}

// SelectRole completes onboarding and redirects to the chosen role's portal.
// POST /auth/select-role with a "role" form or JSON field.
func (h *AuthHandlers) SelectRole(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessioncookie.Name)
	if err != nil || c.Value == "" {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required"})
		return
	}

	raw, err := roleFromRequest(w, r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_request", Message: "role is required"})
		return
	}
	role := domainauth.ParseRole(raw)

	sess, err := h.Svc.SelectRole(r.Context(), c.Value, role)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrRoleNotSelectable):
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "role_not_selectable", Message: "role cannot be selected"})
		return
	case errors.Is(err, service.ErrRoleAlreadyAssigned):
		WriteError(w, ErrorParams{Code: http.StatusConflict, ErrCode: "role_already_assigned", Message: "a role is already assigned"})
		return
	case isMissingSession(err):
		http.SetCookie(w, sessioncookie.Clear(r, sessioncookie.Name, h.CookieDomain))
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required"})
		return
	default:
		h.logger().ErrorContext(r.Context(), "select role failed", "error", err, "role", role.String())
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "select_role_failed"})
		return
	}

	target, err := h.Registry.Resolve(sess.Role, h.Env)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "resolve portal for selected role", "error", err, "role", sess.Role.String())
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "portal_resolution_failed"})
		return
	}
	if wantsJSON(r) {
		WriteJSON(w, http.StatusOK, map[string]string{"role": sess.Role.String(), "redirect_to": target})
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Status returns the current authentication status.
// GET /auth/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessioncookie.Name)
	if err != nil {
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	sess, err := h.Svc.GetSession(r.Context(), c.Value)
	if err != nil {
		if !isMissingSession(err) {
			h.logger().WarnContext(r.Context(), "status lookup failed", "error", err)
		}
		http.SetCookie(w, sessioncookie.Clear(r, sessioncookie.Name, h.CookieDomain))
		WriteJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"user": map[string]any{
			"id":         sess.UserID,
			"first_name": sess.FirstName,
			"last_name":  sess.LastName,
			"email":      sess.Email,
			"role":       sess.Role,
		},
		"pending_role_selection": sess.NeedsRoleSelection(),
		"expires_at":             sess.ExpiresAt,
	})
}

// currentSession loads the caller's session or writes a 401.
func (h *AuthHandlers) currentSession(w http.ResponseWriter, r *http.Request) (*domainauth.Session, bool) {
	c, err := r.Cookie(sessioncookie.Name)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required"})
		return nil, false
	}
	sess, err := h.Svc.GetSession(r.Context(), c.Value)
	if err != nil {
		if !isMissingSession(err) {
			h.logger().ErrorContext(r.Context(), "session lookup failed", "error", err)
			WriteError(w, ErrorParams{Code: http.StatusServiceUnavailable, ErrCode: "session_unavailable"})
			return nil, false
		}
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "authentication_required"})
		return nil, false
	}
	return sess, true
}

func roleFromRequest(w http.ResponseWriter, r *http.Request) (string, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body selectRoleRequest
		if err := decodeJSON(w, r, &body); err != nil {
			return "", err
		}
		if body.Role == "" {
			return "", errors.New("role is required")
		}
		return body.Role, nil
	}
	role := r.FormValue("role")
	if role == "" {
		return "", errors.New("role is required")
	}
	return role, nil
}

func isMissingSession(err error) bool {
	return errors.Is(err, ports.ErrSessionNotFound) || errors.Is(err, service.ErrSessionExpired)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}
