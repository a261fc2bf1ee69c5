package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/medportal/portalgate/internal/domain/access"
)

// PortalConfig holds the per-portal settings read from PORTAL_<ID>_*.
type PortalConfig struct {
	// Addr is the listen address; defaults to ":<dev port>".
	Addr string `env:"ADDR"`
	// URL overrides the production URL derived from the subdomain and base domain.
	URL string `env:"URL"`
	// Upstream is the portal application requests are proxied to once allowed.
	Upstream string `env:"UPSTREAM"`
	// ExemptPaths extends the default exemptions ("/exact", "/prefix/*", "~regex").
	ExemptPaths []string `env:"EXEMPT_PATHS" envSeparator:","`
	// ProtectedPrefixes restricts the access check to matching paths when set.
	ProtectedPrefixes []string `env:"PROTECTED_PREFIXES" envSeparator:","`
}

// PortalsConfig selects which portals this process serves and how.
type PortalsConfig struct {
	Enabled []string `env:"PORTALS" envDefault:"web,patients,doctors,companies" envSeparator:","`

	Web       PortalConfig `envPrefix:"PORTAL_WEB_"`
	Patients  PortalConfig `envPrefix:"PORTAL_PATIENTS_"`
	Doctors   PortalConfig `envPrefix:"PORTAL_DOCTORS_"`
	Companies PortalConfig `envPrefix:"PORTAL_COMPANIES_"`
}

// DefaultWebProtectedPrefixes keeps the central app's marketing pages public.
func DefaultWebProtectedPrefixes() []string {
	return []string{"/admin", "/dashboard"}
}

// Sanitize trims list entries and applies per-portal defaults.
func (p *PortalsConfig) Sanitize() {
	p.Enabled = trimList(p.Enabled)
	for _, pc := range []*PortalConfig{&p.Web, &p.Patients, &p.Doctors, &p.Companies} {
		pc.Addr = strings.TrimSpace(pc.Addr)
		pc.URL = strings.TrimSpace(pc.URL)
		pc.Upstream = strings.TrimSpace(pc.Upstream)
		pc.ExemptPaths = trimList(pc.ExemptPaths)
		pc.ProtectedPrefixes = trimList(pc.ProtectedPrefixes)
	}
	if len(p.Web.ProtectedPrefixes) == 0 {
		p.Web.ProtectedPrefixes = DefaultWebProtectedPrefixes()
	}
}

// EnabledIDs validates the PORTALS list against the known portal set.
func (p *PortalsConfig) EnabledIDs() ([]access.PortalID, error) {
	seen := make(map[access.PortalID]bool, len(p.Enabled))
	out := make([]access.PortalID, 0, len(p.Enabled))
	for _, raw := range p.Enabled {
		id := access.PortalID(strings.ToLower(raw))
		if _, ok := p.lookup(id); !ok {
			return nil, fmt.Errorf("invalid portal: %q (valid options: web, patients, doctors, companies)", raw)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one portal must be enabled")
	}
	return out, nil
}

// For returns the settings of one portal with its listen address filled in.
func (p *PortalsConfig) For(portal access.Portal) PortalConfig {
	pc, _ := p.lookup(portal.ID)
	if pc.Addr == "" {
		pc.Addr = ":" + strconv.Itoa(portal.DevPort)
	}
	return pc
}

// Overrides returns the production URL overrides keyed by portal.
func (p *PortalsConfig) Overrides() map[access.PortalID]string {
	out := map[access.PortalID]string{}
	for _, id := range []access.PortalID{access.PortalWeb, access.PortalPatients, access.PortalDoctors, access.PortalCompanies} {
		if pc, _ := p.lookup(id); pc.URL != "" {
			out[id] = pc.URL
		}
	}
	return out
}

func (p *PortalsConfig) lookup(id access.PortalID) (PortalConfig, bool) {
	switch id {
	case access.PortalWeb:
		return p.Web, true
	case access.PortalPatients:
		return p.Patients, true
	case access.PortalDoctors:
		return p.Doctors, true
	case access.PortalCompanies:
		return p.Companies, true
	default:
		return PortalConfig{}, false
	}
}

func trimList(in []string) []string {
	out := in[:0]
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
