package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/medportal/portalgate/config"
	"github.com/medportal/portalgate/internal/domain/access"
	"github.com/medportal/portalgate/internal/observability/metrics"
	"github.com/medportal/portalgate/internal/observability/statsd"
)

// BuildRegistry validates the portal table against the configured base URL and overrides.
// The process refuses to start when the table is not total over the role set.
func BuildRegistry(cfg *config.AppConfig, sink statsd.Sink, logger *slog.Logger) (*access.Registry, error) {
	reg, err := access.NewRegistry(access.RegistryConfig{
		BaseURL:   cfg.HTTP.BaseURL,
		Overrides: cfg.Portals.Overrides(),
	})
	if err != nil {
		return nil, fmt.Errorf("build portal registry: %w", err)
	}

	env := cfg.Environment()
	if logger != nil {
		for _, p := range reg.Portals() {
			u, _ := reg.PortalURL(p.ID, env)
			logger.Info("portal registered",
				"portal", string(p.ID),
				"role", p.ExpectedRole.String(),
				"url", u,
				"env", string(env),
			)
		}
	}
	metrics.EmitRegistry(sink, len(reg.Portals()), string(env))
	return reg, nil
}

// BuildMetrics returns the StatsD client; a disabled client is returned when metrics are off.
func BuildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (*statsd.Client, error) {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build statsd client: %w", err)
	}
	if logger != nil && client.Enabled() {
		logger.Info("metrics enabled", "addr", cfg.StatsdAddress, "prefix", cfg.Prefix)
	}
	return client, nil
}
