package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/medportal/portalgate/internal/bootstrap"
	"github.com/medportal/portalgate/internal/data"
	domainauth "github.com/medportal/portalgate/internal/domain/auth"
	"github.com/medportal/portalgate/internal/ports"
)

// sessionAdmin is the session store surface the CLI needs.
type sessionAdmin interface {
	ports.SessionStore
	List(ctx context.Context, limit int) ([]string, error)
}

// profileAdmin is the profile store surface the CLI needs.
type profileAdmin interface {
	ports.ProfileStore
	ClearRole(ctx context.Context, userID string) error
}

var errProfilesDisabled = errors.New("profile database disabled; set DB_ENABLED=true")

//nolint:ireturn // the CLI works against the store interfaces so tests can substitute them.
func openRedisSessions(cmdCtx *commandContext) (sessionAdmin, func() error, error) {
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: cmdCtx.Config.Redis,
		Logger:      cmdCtx.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	return bootstrap.NewSessionStore(client, cmdCtx.Config.Session), client.Close, nil
}

//nolint:ireturn // the CLI works against the store interfaces so tests can substitute them.
func openDBProfiles(cmdCtx *commandContext) (profileAdmin, func() error, error) {
	if !cmdCtx.Config.Postgres.Enabled {
		return nil, nil, errProfilesDisabled
	}
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cmdCtx.Config.Postgres,
		Logger:   cmdCtx.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}
	return data.NewProfileRepo(db), db.Close, nil
}

func closeWith(cmdCtx *commandContext, closeFn func() error, what string) {
	if closeFn == nil {
		return
	}
	if err := closeFn(); err != nil {
		cmdCtx.Logger.Warn(what+" close failed", "error", err)
	}
}

var _ profileAdmin = (*data.ProfileRepo)(nil)

// roleOrNone accepts "none" to clear a role.
func roleOrNone(raw string) (domainauth.Role, bool, error) {
	if raw == "none" {
		return domainauth.RoleNone, true, nil
	}
	role := domainauth.ParseRole(raw)
	if !role.Known() {
		return "", false, fmt.Errorf("unknown role %q", raw)
	}
	return role, false, nil
}
