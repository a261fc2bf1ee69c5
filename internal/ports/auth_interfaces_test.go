package ports_test

import (
	"testing"

	"github.com/medportal/portalgate/internal/adapters/authroles"
	"github.com/medportal/portalgate/internal/adapters/jwtsession"
	redisadapter "github.com/medportal/portalgate/internal/adapters/redis"
	"github.com/medportal/portalgate/internal/mocks"
	authmocks "github.com/medportal/portalgate/internal/mocks/auth"
	"github.com/medportal/portalgate/internal/ports"
)

// This test only verifies that adapters and mocks conform to the ports at compile time.
func TestImplementationsSatisfyPorts(t *testing.T) {
	t.Helper()

	var _ ports.AuthProvider = (*authmocks.MockAuthProvider)(nil)
	var _ ports.SessionStore = (*authmocks.MemorySessionStore)(nil)
	var _ ports.SessionStore = (*redisadapter.SessionStore)(nil)
	var _ ports.ProfileStore = (*authmocks.MemoryProfileStore)(nil)
	var _ ports.ProfileStore = (*mocks.MockProfileStore)(nil)
	var _ ports.RoleMapper = authroles.StaticRoleMapper{}
	var _ ports.SessionReader = (*redisadapter.SessionReader)(nil)
	var _ ports.SessionReader = (*jwtsession.Reader)(nil)
	var _ ports.SessionReader = (*mocks.MockSessionReader)(nil)
}
