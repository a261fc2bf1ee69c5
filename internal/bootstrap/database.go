package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/medportal/portalgate/config"
	"github.com/medportal/portalgate/internal/migrate"
	"github.com/redis/go-redis/v9"
)

// DatabaseConfig contains configuration for database connections.
type DatabaseConfig struct {
	DBConfig    config.DBConfig
	RedisConfig config.RedisConfig
	Logger      *slog.Logger
}

// ConnectDB establishes a connection to the PostgreSQL profile database.
func ConnectDB(cfg DatabaseConfig) (*sql.DB, error) {
	// Build DSN using url.URL to safely handle special characters in credentials
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.DBConfig.User, cfg.DBConfig.Password),
		Host:   net.JoinHostPort(cfg.DBConfig.Host, strconv.Itoa(cfg.DBConfig.Port)),
		Path:   "/" + cfg.DBConfig.Name,
	}
	q := u.Query()
	q.Set("sslmode", cfg.DBConfig.SSLMode)
	u.RawQuery = q.Encode()
	dsn := u.String()

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.DBConfig.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DBConfig.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConfig.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := db.PingContext(ctx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("database connected",
			"host", cfg.DBConfig.Host,
			"port", cfg.DBConfig.Port,
			"database", cfg.DBConfig.Name,
		)
	}

	return db, nil
}

// ConnectRedis establishes a connection to the Redis instance holding shared sessions.
//
//nolint:ireturn // the session store works against UniversalClient for every topology.
func ConnectRedis(cfg DatabaseConfig) (redis.UniversalClient, error) {
	opts, addrDesc, err := RedisOptions(cfg.RedisConfig)
	if err != nil {
		return nil, err
	}
	client := redis.NewUniversalClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		if closeErr := client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis %s: %w", addrDesc, pingErr)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("redis connected", "addr", addrDesc)
	}
	return client, nil
}

// RedisOptions maps the session store settings onto go-redis universal options.
// redis.NewUniversalClient then picks the topology: a MasterName selects sentinel
// failover, IsClusterMode selects cluster, anything else a single node.
// The returned description carries no credentials.
func RedisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	switch {
	case cfg.UseCluster && cfg.UseSentinel:
		return nil, "", errors.New("redis: REDIS_USE_CLUSTER and REDIS_USE_SENTINEL are mutually exclusive")
	case cfg.UseCluster:
		return clusterOptions(cfg)
	case cfg.UseSentinel:
		return sentinelOptions(cfg)
	default:
		return directOptions(cfg)
	}
}

func clusterOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	opts := &redis.UniversalOptions{
		Addrs:         trimAddrs(cfg.ClusterNodes),
		Password:      cfg.Password,
		IsClusterMode: true,
	}
	if len(opts.Addrs) == 0 {
		// A single configuration endpoint, as managed clusters expose, may come through the URI.
		node, _, err := directOptions(cfg)
		if err != nil {
			return nil, "", fmt.Errorf("redis cluster needs REDIS_CLUSTER_NODES or REDIS_URI: %w", err)
		}
		node.IsClusterMode = true
		node.DB = 0
		opts = node
	}
	return opts, "cluster:" + strings.Join(opts.Addrs, ","), nil
}

func sentinelOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	nodes := trimAddrs(cfg.SentinelNodes)
	master := strings.TrimSpace(cfg.SentinelMasterName)
	switch {
	case len(nodes) == 0:
		return nil, "", errors.New("redis sentinel needs at least one REDIS_SENTINEL_NODES entry")
	case master == "":
		return nil, "", errors.New("redis sentinel needs REDIS_SENTINEL_MASTER_NAME")
	}
	return &redis.UniversalOptions{
		Addrs:            nodes,
		MasterName:       master,
		Password:         cfg.Password,
		SentinelPassword: cfg.SentinelPassword,
		DB:               cfg.DB,
	}, "sentinel:" + master + "@" + strings.Join(nodes, ","), nil
}

func directOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, "", errors.New("redis: REDIS_URI is required")
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		return &redis.UniversalOptions{Addrs: []string{uri}, Password: cfg.Password, DB: cfg.DB}, uri, nil
	}

	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return nil, "", fmt.Errorf("parse redis url: %w", err)
	}
	opts := &redis.UniversalOptions{
		Addrs:     []string{parsed.Addr},
		Username:  parsed.Username,
		Password:  parsed.Password,
		DB:        parsed.DB,
		TLSConfig: parsed.TLSConfig,
	}
	if opts.Password == "" {
		opts.Password = cfg.Password
	}
	return opts, parsed.Addr, nil
}

func trimAddrs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// RunMigrations applies the embedded profile schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	applied, err := migrate.RunWithLogger(ctx, db, logger)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	logger.InfoContext(ctx, "database migrations completed", "applied", len(applied))
	return nil
}
