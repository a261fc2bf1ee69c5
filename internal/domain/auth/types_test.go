package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		raw  string
		want Role
	}{
		{"patient", RolePatient},
		{" Doctor ", RoleDoctor},
		{"COMPANY_ADMIN", RoleCompanyAdmin},
		{"platform_admin", RolePlatformAdmin},
		{"", RoleNone},
		{"   ", RoleNone},
		{"nurse", RoleUnknown},
		{"unknown", RoleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRole(tt.raw))
		})
	}
}

func TestRoleSelectable(t *testing.T) {
	assert.True(t, RolePatient.Selectable())
	assert.True(t, RoleDoctor.Selectable())
	assert.True(t, RoleCompanyAdmin.Selectable())
	assert.False(t, RolePlatformAdmin.Selectable())
	assert.False(t, RoleUnknown.Selectable())
}

func TestSessionNeedsRoleSelection(t *testing.T) {
	assert.True(t, Session{Role: RoleNone}.NeedsRoleSelection())
	assert.True(t, Session{Role: RoleUnknown}.NeedsRoleSelection())
	assert.True(t, Session{Role: RoleDoctor, PendingRoleSelection: true}.NeedsRoleSelection())
	assert.False(t, Session{Role: RoleDoctor}.NeedsRoleSelection())
}
