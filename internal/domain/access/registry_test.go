package access

import (
	"testing"

	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(RegistryConfig{BaseURL: "https://example.com"})
	require.NoError(t, err)
	return reg
}

func TestRegistryResolve(t *testing.T) {
	reg := newTestRegistry(t)

	tests := []struct {
		role domainauth.Role
		env  Environment
		want string
	}{
		{domainauth.RolePatient, Development, "http://localhost:3001"},
		{domainauth.RoleDoctor, Development, "http://localhost:3002"},
		{domainauth.RoleCompanyAdmin, Development, "http://localhost:3003"},
		{domainauth.RolePlatformAdmin, Development, "http://localhost:3000"},
		{domainauth.RolePatient, Production, "https://patients.example.com"},
		{domainauth.RoleDoctor, Production, "https://doctors.example.com"},
		{domainauth.RoleCompanyAdmin, Production, "https://companies.example.com"},
		{domainauth.RolePlatformAdmin, Production, "https://app.example.com"},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.env), func(t *testing.T) {
			got, err := reg.Resolve(tt.role, tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRegistryResolveUnknownRole(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Resolve(domainauth.RoleUnknown, Production)
	require.ErrorIs(t, err, ErrRoleNotRegistered)

	_, err = reg.Resolve(domainauth.Role("nurse"), Development)
	require.ErrorIs(t, err, ErrRoleNotRegistered)
}

func TestRegistryResolveInvalidEnvironment(t *testing.T) {
	reg := newTestRegistry(t)
	_, err := reg.Resolve(domainauth.RoleDoctor, Environment("staging"))
	require.ErrorIs(t, err, ErrInvalidEnvironment)
}

func TestRegistryProductionOverride(t *testing.T) {
	reg, err := NewRegistry(RegistryConfig{
		BaseURL: "https://example.com",
		Overrides: map[PortalID]string{
			PortalDoctors:  "https://clinicians.example.org/",
			PortalPatients: "  ",
		},
	})
	require.NoError(t, err)

	got, err := reg.Resolve(domainauth.RoleDoctor, Production)
	require.NoError(t, err)
	assert.Equal(t, "https://clinicians.example.org", got)

	got, err = reg.Resolve(domainauth.RolePatient, Production)
	require.NoError(t, err)
	assert.Equal(t, "https://patients.example.com", got, "blank override falls back to subdomain URL")

	got, err = reg.Resolve(domainauth.RoleDoctor, Development)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3002", got, "override only applies to production")
}

func TestNewRegistryRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  RegistryConfig
	}{
		{name: "missing base URL", cfg: RegistryConfig{}},
		{name: "relative base URL", cfg: RegistryConfig{BaseURL: "example.com"}},
		{
			name: "role not covered",
			cfg: RegistryConfig{BaseURL: "https://example.com", Portals: []Portal{
				{ID: PortalDoctors, ExpectedRole: domainauth.RoleDoctor, DevPort: 3002, Subdomain: "doctors"},
			}},
		},
		{
			name: "duplicate port",
			cfg: RegistryConfig{BaseURL: "https://example.com", Portals: func() []Portal {
				p := DefaultPortals()
				p[1].DevPort = p[0].DevPort
				return p
			}()},
		},
		{
			name: "duplicate subdomain",
			cfg: RegistryConfig{BaseURL: "https://example.com", Portals: func() []Portal {
				p := DefaultPortals()
				p[2].Subdomain = p[3].Subdomain
				return p
			}()},
		},
		{
			name: "unknown role",
			cfg: RegistryConfig{BaseURL: "https://example.com", Portals: func() []Portal {
				p := DefaultPortals()
				p[0].ExpectedRole = domainauth.Role("nurse")
				return p
			}()},
		},
		{
			name: "relative override",
			cfg: RegistryConfig{
				BaseURL:   "https://example.com",
				Overrides: map[PortalID]string{PortalWeb: "/app"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewRegistry(tt.cfg)
			require.Error(t, err)
			assert.Nil(t, reg)
		})
	}
}

func TestRegistryPortals(t *testing.T) {
	reg := newTestRegistry(t)

	ids := make([]PortalID, 0, 4)
	for _, p := range reg.Portals() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []PortalID{PortalWeb, PortalPatients, PortalDoctors, PortalCompanies}, ids)

	id, ok := reg.PortalFor(domainauth.RoleCompanyAdmin)
	assert.True(t, ok)
	assert.Equal(t, PortalCompanies, id)

	_, ok = reg.Portal("billing")
	assert.False(t, ok)
	assert.Equal(t, "example.com", reg.BaseDomain())
}

func TestEnvironmentUnmarshalText(t *testing.T) {
	var e Environment
	require.NoError(t, e.UnmarshalText([]byte("Prod")))
	assert.Equal(t, Production, e)
	require.NoError(t, e.UnmarshalText([]byte("development")))
	assert.Equal(t, Development, e)
	require.Error(t, e.UnmarshalText([]byte("staging")))
	assert.Equal(t, Development, EnvironmentFor(true))
	assert.Equal(t, Production, EnvironmentFor(false))
}
