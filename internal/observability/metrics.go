package observability

import (
	"fmt"
	"net"
	"strconv"

	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/fulmenhq/gofulmen/telemetry/exporters"
)

var (
	// TelemetrySystem receives every counter, gauge and histogram the service emits.
	// Nil until InitMetrics succeeds; recorders treat nil as "metrics disabled".
	TelemetrySystem *telemetry.System

	// PrometheusExporter serves the scrape endpoint that /metrics proxies to.
	PrometheusExporter *exporters.PrometheusExporter

	metricsPort int
)

// MetricsOptions configures the Prometheus exporter.
type MetricsOptions struct {
	// Namespace prefixes every metric name (for example "ixra").
	Namespace string
	// Port for the exporter listener; 0 picks a free port.
	Port int
}

// InitMetrics starts the Prometheus exporter and installs the telemetry system.
func InitMetrics(opts MetricsOptions) error {
	if opts.Namespace == "" {
		return fmt.Errorf("metrics namespace is required")
	}
	port := opts.Port
	if port < 0 {
		port = 0
	}

	exporter := exporters.NewPrometheusExporter(opts.Namespace, fmt.Sprintf(":%d", port))
	if err := exporter.Start(); err != nil {
		return fmt.Errorf("start prometheus exporter: %w", err)
	}

	sys, err := telemetry.NewSystem(&telemetry.Config{
		Enabled: true,
		Emitter: exporter,
	})
	if err != nil {
		_ = exporter.Stop()
		return fmt.Errorf("create telemetry system: %w", err)
	}

	// An ephemeral listener only reveals its port after Start.
	if bound, err := resolvePort(exporter.GetAddr()); err == nil {
		port = bound
	}

	PrometheusExporter = exporter
	TelemetrySystem = sys
	metricsPort = port
	return nil
}

// ShutdownMetrics stops the exporter and clears the globals so recorders go quiet.
func ShutdownMetrics() error {
	exporter := PrometheusExporter
	PrometheusExporter = nil
	TelemetrySystem = nil
	metricsPort = 0
	if exporter == nil {
		return nil
	}
	return exporter.Stop()
}

// MetricsPort reports the exporter's bound port, or 0 when metrics are off.
func MetricsPort() int {
	return metricsPort
}

func resolvePort(addr string) (int, error) {
	_, raw, err := net.SplitHostPort(addr)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}
