package authroles

import (
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
)

// StaticRoleMapper maps IdP group names to portal roles.
// When a user is in several mapped groups the most privileged role wins:
// platform_admin, company_admin, doctor, patient.
type StaticRoleMapper struct {
	PlatformAdminGroup string
	CompanyAdminGroup  string
	DoctorGroup        string
	PatientGroup       string
}

// Map returns RoleNone when no group grants a role.
func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	member := make(map[string]struct{}, len(groups))
	for _, g := range groups {
		member[g] = struct{}{}
	}
	for _, rule := range []struct {
		group string
		role  domainauth.Role
	}{
		{m.PlatformAdminGroup, domainauth.RolePlatformAdmin},
		{m.CompanyAdminGroup, domainauth.RoleCompanyAdmin},
		{m.DoctorGroup, domainauth.RoleDoctor},
		{m.PatientGroup, domainauth.RolePatient},
	} {
		if rule.group == "" {
			continue
		}
		if _, ok := member[rule.group]; ok {
			return rule.role
		}
	}
	return domainauth.RoleNone
}
