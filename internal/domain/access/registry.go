package access

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	domainauth "github.com/medportal/portalgate/internal/domain/auth"
)

// PortalID names one of the independently deployed applications.
type PortalID string

const (
	PortalWeb       PortalID = "web"
	PortalPatients  PortalID = "patients"
	PortalDoctors   PortalID = "doctors"
	PortalCompanies PortalID = "companies"
)

// Portal describes one application and the role it serves.
type Portal struct {
	ID           PortalID
	ExpectedRole domainauth.Role
	DevPort      int
	Subdomain    string
	// ProductionURL overrides the computed https://<subdomain>.<base-domain> when set.
	ProductionURL string
}

// DefaultPortals is the static port/subdomain table fixed at build time.
func DefaultPortals() []Portal {
	return []Portal{
		{ID: PortalWeb, ExpectedRole: domainauth.RolePlatformAdmin, DevPort: 3000, Subdomain: "app"},
		{ID: PortalPatients, ExpectedRole: domainauth.RolePatient, DevPort: 3001, Subdomain: "patients"},
		{ID: PortalDoctors, ExpectedRole: domainauth.RoleDoctor, DevPort: 3002, Subdomain: "doctors"},
		{ID: PortalCompanies, ExpectedRole: domainauth.RoleCompanyAdmin, DevPort: 3003, Subdomain: "companies"},
	}
}

// RegistryConfig is the startup input for NewRegistry.
type RegistryConfig struct {
	// BaseURL is the base application URL; its host is the base domain for production URLs.
	BaseURL string
	// Portals defaults to DefaultPortals when empty.
	Portals []Portal
	// Overrides maps portal IDs to production URL overrides. Empty values are ignored.
	Overrides map[PortalID]string
}

var (
	// ErrRoleNotRegistered is returned when a role has no portal in the registry.
	ErrRoleNotRegistered = errors.New("role not registered")
	// ErrPortalNotRegistered is returned for an unknown portal ID.
	ErrPortalNotRegistered = errors.New("portal not registered")
	// ErrInvalidEnvironment is returned for an environment other than development/production.
	ErrInvalidEnvironment = errors.New("invalid environment")
)

type registryEntry struct {
	portal  Portal
	devURL  string
	prodURL string
}

// Registry maps roles to canonical portal URLs. It is immutable after NewRegistry returns.
type Registry struct {
	baseDomain string
	order      []PortalID
	byID       map[PortalID]registryEntry
	byRole     map[domainauth.Role]PortalID
}

// NewRegistry validates the portal table and precomputes every URL.
// It fails when the table is not total over the role set or entries collide.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	portals := cfg.Portals
	if len(portals) == 0 {
		portals = DefaultPortals()
	}

	baseDomain, err := baseDomainFrom(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	reg := &Registry{
		baseDomain: baseDomain,
		order:      make([]PortalID, 0, len(portals)),
		byID:       make(map[PortalID]registryEntry, len(portals)),
		byRole:     make(map[domainauth.Role]PortalID, len(portals)),
	}
	ports := make(map[int]PortalID, len(portals))
	subdomains := make(map[string]PortalID, len(portals))

	for _, p := range portals {
		if override := strings.TrimSpace(cfg.Overrides[p.ID]); override != "" {
			p.ProductionURL = override
		}
		if vErr := validatePortal(p); vErr != nil {
			return nil, vErr
		}
		if _, dup := reg.byID[p.ID]; dup {
			return nil, fmt.Errorf("registry: duplicate portal %q", p.ID)
		}
		if other, dup := reg.byRole[p.ExpectedRole]; dup {
			return nil, fmt.Errorf("registry: role %q mapped to both %q and %q", p.ExpectedRole, other, p.ID)
		}
		if other, dup := ports[p.DevPort]; dup {
			return nil, fmt.Errorf("registry: dev port %d shared by %q and %q", p.DevPort, other, p.ID)
		}
		if other, dup := subdomains[p.Subdomain]; dup {
			return nil, fmt.Errorf("registry: subdomain %q shared by %q and %q", p.Subdomain, other, p.ID)
		}

		prodURL, pErr := productionURL(p, baseDomain)
		if pErr != nil {
			return nil, pErr
		}

		reg.byID[p.ID] = registryEntry{
			portal:  p,
			devURL:  "http://localhost:" + strconv.Itoa(p.DevPort),
			prodURL: prodURL,
		}
		reg.byRole[p.ExpectedRole] = p.ID
		reg.order = append(reg.order, p.ID)
		ports[p.DevPort] = p.ID
		subdomains[p.Subdomain] = p.ID
	}

	for _, role := range domainauth.Roles() {
		if _, ok := reg.byRole[role]; !ok {
			return nil, fmt.Errorf("registry: no portal for role %q", role)
		}
	}

	return reg, nil
}

func validatePortal(p Portal) error {
	if p.ID == "" {
		return errors.New("registry: portal ID is required")
	}
	if !p.ExpectedRole.Known() {
		return fmt.Errorf("registry: portal %q has unknown role %q", p.ID, p.ExpectedRole)
	}
	if p.DevPort <= 0 || p.DevPort > 65535 {
		return fmt.Errorf("registry: portal %q has invalid dev port %d", p.ID, p.DevPort)
	}
	if p.Subdomain == "" && p.ProductionURL == "" {
		return fmt.Errorf("registry: portal %q needs a subdomain or a production URL", p.ID)
	}
	return nil
}

func baseDomainFrom(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("registry: base URL is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("registry: parse base URL: %w", err)
	}
	if !u.IsAbs() || u.Hostname() == "" {
		return "", fmt.Errorf("registry: base URL %q must be absolute", raw)
	}
	return strings.ToLower(u.Hostname()), nil
}

func productionURL(p Portal, baseDomain string) (string, error) {
	if p.ProductionURL == "" {
		return "https://" + p.Subdomain + "." + baseDomain, nil
	}
	u, err := url.Parse(p.ProductionURL)
	if err != nil {
		return "", fmt.Errorf("registry: parse override for %q: %w", p.ID, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("registry: override for %q must be an absolute http(s) URL", p.ID)
	}
	return strings.TrimRight(p.ProductionURL, "/"), nil
}

// Resolve returns the canonical absolute URL for the portal serving role.
func (r *Registry) Resolve(role domainauth.Role, env Environment) (string, error) {
	id, ok := r.byRole[role]
	if !ok {
		return "", fmt.Errorf("resolve %q: %w", role, ErrRoleNotRegistered)
	}
	return r.PortalURL(id, env)
}

// PortalURL returns the base URL of a portal in env.
func (r *Registry) PortalURL(id PortalID, env Environment) (string, error) {
	e, ok := r.byID[id]
	if !ok {
		return "", fmt.Errorf("portal %q: %w", id, ErrPortalNotRegistered)
	}
	switch env {
	case Development:
		return e.devURL, nil
	case Production:
		return e.prodURL, nil
	default:
		return "", fmt.Errorf("portal %q in %q: %w", id, env, ErrInvalidEnvironment)
	}
}

// PortalFor returns the portal that serves role.
func (r *Registry) PortalFor(role domainauth.Role) (PortalID, bool) {
	id, ok := r.byRole[role]
	return id, ok
}

// Portal returns the registered portal definition.
func (r *Registry) Portal(id PortalID) (Portal, bool) {
	e, ok := r.byID[id]
	return e.portal, ok
}

// Portals returns the registered portals in registration order.
func (r *Registry) Portals() []Portal {
	out := make([]Portal, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].portal)
	}
	return out
}

// BaseDomain is the host of the configured base URL.
func (r *Registry) BaseDomain() string { return r.baseDomain }
