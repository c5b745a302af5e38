package cmd

import (
	"context"
	"fmt"

	"github.com/ixra/ixra-api/internal/ailink"
	"github.com/ixra/ixra-api/internal/ailink/prompt"
	"github.com/ixra/ixra-api/internal/config"
	errwrap "github.com/ixra/ixra-api/internal/errors"
	"github.com/ixra/ixra-api/internal/observability"
	"github.com/ixra/ixra-api/internal/server/handlers"
)

// healthRoutes returns the manager to mount, or nil when health.enabled is off.
func healthRoutes(cfg *config.Config, hm *handlers.HealthManager) *handlers.HealthManager {
	if !cfg.Health.Enabled {
		return nil
	}
	return hm
}

// providerHealthChecker degrades readiness when no completion credential is
// set. Chat still answers, with the setup notice, so traffic keeps flowing.
type providerHealthChecker struct {
	cfg ailink.Config
}

func (p providerHealthChecker) CheckHealth(ctx context.Context) error {
	if !p.cfg.Configured() {
		return fmt.Errorf("%w: completion provider credential not configured", handlers.ErrDegraded)
	}
	return nil
}

// telemetryHealthChecker degrades readiness when metrics were requested but the
// exporter is gone.
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return fmt.Errorf("%w: metrics exporter not running", handlers.ErrDegraded)
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// storeHealthChecker pings the SQL store behind rate limits and leads.
type storeHealthChecker struct {
	db pinger
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// promptHealthChecker fails when the loaded system prompt renders empty.
type promptHealthChecker struct {
	prompts *prompt.Source
}

func (p promptHealthChecker) CheckHealth(ctx context.Context) error {
	if p.prompts.System() == "" {
		return errwrap.NewServiceUnavailableError("system prompt is empty")
	}
	return nil
}
