package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/medportal/portalgate/config"
	"github.com/medportal/portalgate/internal/bootstrap"
	"github.com/medportal/portalgate/internal/data"
	"github.com/medportal/portalgate/internal/domain/access"
	httpx "github.com/medportal/portalgate/internal/http"
	"github.com/medportal/portalgate/internal/ports"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()
	cfg, err := bootstrap.LoadConfig()
	logger := bootstrap.InitLogger(cfg.LogLevel)
	if err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
	if err := run(ctx, &cfg, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) error {
	portals, err := cfg.Portals.EnabledIDs()
	if err != nil {
		return err
	}
	logStartupInfo(ctx, logger, cfg, portals)

	metricsClient, err := bootstrap.BuildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := metricsClient.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close statsd client failed", "error", cerr)
		}
	}()

	registry, err := bootstrap.BuildRegistry(cfg, metricsClient, logger)
	if err != nil {
		return err
	}

	infra, err := initInfrastructure(ctx, cfg, portals, logger)
	if err != nil {
		return err
	}
	defer infra.close(ctx, logger)

	var sessions ports.SessionStore
	if infra.redis != nil {
		sessions = bootstrap.NewSessionStore(infra.redis, cfg.Session)
	}

	reader, err := bootstrap.BuildSessionReader(bootstrap.SessionReaderConfig{
		Session:      cfg.Session,
		JWT:          cfg.JWT,
		CookieDomain: cfg.HTTP.CookieDomain,
		Sessions:     sessions,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("build session reader: %w", err)
	}

	serversCfg := bootstrap.PortalServersConfig{
		Config:   cfg,
		Registry: registry,
		Reader:   reader,
		Ready:    infra.readiness(),
		Metrics:  metricsClient,
		Logger:   logger,
	}

	if slices.Contains(portals, access.PortalWeb) {
		var profiles ports.ProfileStore
		if infra.db != nil {
			profiles = data.NewProfileRepo(infra.db)
		}
		authSvc, authErr := bootstrap.BuildAuthService(ctx, bootstrap.AuthConfig{
			Auth:        cfg.Auth,
			Session:     cfg.Session,
			CallbackURL: bootstrap.CallbackURL(registry, cfg.Environment(), cfg.Auth.OAuth.RedirectURL),
			Sessions:    sessions,
			Profiles:    profiles,
			Logger:      logger,
		})
		if authErr != nil {
			return authErr
		}
		serversCfg.Auth = authSvc
	}

	servers, err := bootstrap.BuildPortalServers(serversCfg)
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return bootstrap.ServePortals(sigCtx, servers, cfg.HTTP.ShutdownTimeout, logger)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig, portals []access.PortalID) {
	names := make([]string, 0, len(portals))
	for _, p := range portals {
		names = append(names, string(p))
	}
	logger.InfoContext(ctx, "starting portalgate",
		"env", string(cfg.Environment()),
		"base_url", cfg.HTTP.BaseURL,
		"auth_mode", string(cfg.Auth.Mode),
		"session_backend", string(cfg.Session.Backend),
		"profile_db", cfg.Postgres.Enabled,
		"portals", names)
}

type infrastructure struct {
	db    *sql.DB
	redis redis.UniversalClient
}

// initInfrastructure connects the dependencies the enabled portals need.
// Redis backs the session store for the redis backend and for the central login;
// Postgres is only used when stored onboarding roles are enabled.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	portals []access.PortalID,
	logger *slog.Logger,
) (*infrastructure, error) {
	infra := &infrastructure{}

	needRedis := cfg.Session.Backend == config.SessionBackendRedis || slices.Contains(portals, access.PortalWeb)
	if needRedis {
		client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
			RedisConfig: cfg.Redis,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.redis = client
	}

	if cfg.Postgres.Enabled {
		db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
			DBConfig: cfg.Postgres,
			Logger:   logger,
		})
		if err != nil {
			infra.close(ctx, logger)
			return nil, fmt.Errorf("connect db: %w", err)
		}
		infra.db = db

		if cfg.Postgres.RunMigrationsOnStart {
			if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
				infra.close(ctx, logger)
				return nil, err
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
	}

	return infra, nil
}

func (i *infrastructure) readiness() map[string]httpx.Pinger {
	checks := map[string]httpx.Pinger{}
	if i.redis != nil {
		checks["redis"] = func(ctx context.Context) error { return i.redis.Ping(ctx).Err() }
	}
	if i.db != nil {
		checks["postgres"] = i.db.PingContext
	}
	return checks
}

func (i *infrastructure) close(ctx context.Context, logger *slog.Logger) {
	if i.db != nil {
		if cerr := i.db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}
	if i.redis != nil {
		if cerr := i.redis.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", cerr)
		}
	}
}
