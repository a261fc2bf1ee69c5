package authroles

import (
	"testing"

	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/stretchr/testify/assert"
)

func TestStaticRoleMapper_Map(t *testing.T) {
	m := StaticRoleMapper{
		PlatformAdminGroup: "portal-admins",
		CompanyAdminGroup:  "portal-companies",
		DoctorGroup:        "portal-doctors",
		PatientGroup:       "portal-patients",
	}

	tests := []struct {
		name   string
		groups []string
		want   domainauth.Role
	}{
		{"no groups", nil, domainauth.RoleNone},
		{"unrelated groups", []string{"offline_access"}, domainauth.RoleNone},
		{"patient", []string{"portal-patients"}, domainauth.RolePatient},
		{"doctor beats patient", []string{"portal-patients", "portal-doctors"}, domainauth.RoleDoctor},
		{"company admin", []string{"portal-companies"}, domainauth.RoleCompanyAdmin},
		{"platform admin wins", []string{"portal-doctors", "portal-admins"}, domainauth.RolePlatformAdmin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Map(tt.groups))
		})
	}
}

func TestStaticRoleMapper_EmptyGroupNeverMatches(t *testing.T) {
	m := StaticRoleMapper{DoctorGroup: "portal-doctors"}
	assert.Equal(t, domainauth.RoleNone, m.Map([]string{""}))
}
