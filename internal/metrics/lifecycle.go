package metrics

import (
	"strconv"
	"time"

	"github.com/ixra/ixra-api/internal/observability"
)

// Process and probe metrics.
const (
	ServerStartTime       = "server_start_time_seconds"
	ServerUptime          = "server_uptime_seconds"
	OpenConnections       = "http_open_connections"
	HealthChecksTotal     = "health_checks_total"
	HealthCheckDurationMs = "health_check_duration_ms"
	ReloadsTotal          = "reloads_total"
	ErrorEnvelopesTotal   = "error_envelopes_total"
	PanicsTotal           = "panics_total"
)

// Reload targets.
const (
	ReloadConfig = "config"
	ReloadPrompt = "prompt"
)

// RecordServerStart publishes the listener start as a unix timestamp.
func RecordServerStart(at time.Time) {
	gauge(ServerStartTime, float64(at.Unix()), nil)
}

// RecordUptime publishes whole seconds since start; refreshed on each /health call.
func RecordUptime(d time.Duration) {
	gauge(ServerUptime, float64(int64(d.Seconds())), nil)
}

// SetOpenConnections tracks connections between StateNew and StateClosed/Hijacked.
func SetOpenConnections(n int64) {
	gauge(OpenConnections, float64(n), nil)
}

// RecordHealthCheck counts one checker run by status (healthy, degraded, unhealthy).
func RecordHealthCheck(name, status string, d time.Duration) {
	count(HealthChecksTotal, map[string]string{"check": name, "status": status})
	histogram(HealthCheckDurationMs, d, map[string]string{"check": name})
}

// Reload results.
const (
	ReloadOK      = "ok"
	ReloadFailed  = "failed"
	ReloadInvalid = "invalid"
)

// ReloadResult maps a reload error to ReloadOK or ReloadFailed.
func ReloadResult(err error) string {
	return outcome(err == nil, ReloadOK, ReloadFailed)
}

// RecordReload counts SIGHUP and watcher reloads of config or prompt.
func RecordReload(target, result string) {
	count(ReloadsTotal, map[string]string{"target": target, "result": result})
}

// RecordErrorEnvelope counts error envelopes written to clients. Route must be
// the chi pattern, never the raw path.
func RecordErrorEnvelope(route, code string, status int) {
	if route == "" {
		route = "unmatched"
	}
	count(ErrorEnvelopesTotal, map[string]string{
		"route":  route,
		"code":   code,
		"status": strconv.Itoa(status),
	})
}

// RecordPanic counts handler panics caught by the recovery middleware.
func RecordPanic(route string) {
	if route == "" {
		route = "unmatched"
	}
	count(PanicsTotal, map[string]string{"route": route})
}

func count(name string, tags map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(name, 1, tags)
	}
}

func gauge(name string, v float64, tags map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(name, v, tags)
	}
}

func histogram(name string, d time.Duration, tags map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Histogram(name, d, tags)
	}
}
