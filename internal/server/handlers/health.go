package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/ixra/ixra-api/internal/errors"
	"github.com/ixra/ixra-api/internal/metrics"
)

// Check and aggregate statuses.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// ErrDegraded marks a checker failure that leaves the API serving. Wrap it
// with %w; the wrapped message is reported in the check detail.
var ErrDegraded = errors.New("degraded")

const defaultCheckTimeout = 3 * time.Second

// HealthChecker reports on one dependency. A nil error is healthy, an error
// wrapping ErrDegraded is degraded, anything else is unhealthy.
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to HealthChecker.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) CheckHealth(ctx context.Context) error { return f(ctx) }

// CheckResult is one entry of the checks map.
type CheckResult struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// HealthResponse is the body of /health, /health/ready and /health/startup.
type HealthResponse struct {
	Status        string                 `json:"status"`
	Version       string                 `json:"version,omitempty"`
	UptimeSeconds int64                  `json:"uptime_seconds"`
	Timestamp     time.Time              `json:"timestamp"`
	Checks        map[string]CheckResult `json:"checks,omitempty"`
}

// HealthManager runs the registered checkers for the probe endpoints.
// Register checkers before the server starts; the set is not guarded.
type HealthManager struct {
	checkers map[string]HealthChecker
	version  string
	started  time.Time
	ready    atomic.Bool
	timeout  time.Duration
}

// NewHealthManager returns a manager with no checkers. Startup reports 503
// until MarkStarted.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		checkers: make(map[string]HealthChecker),
		version:  version,
		started:  time.Now(),
		timeout:  defaultCheckTimeout,
	}
}

// RegisterChecker adds or replaces the checker reported under name.
func (hm *HealthManager) RegisterChecker(name string, checker HealthChecker) {
	hm.checkers[name] = checker
}

// MarkStarted flips the startup probe once the listener is up.
func (hm *HealthManager) MarkStarted() {
	hm.ready.Store(true)
}

// Check runs every checker concurrently, each under the manager timeout.
func (hm *HealthManager) Check(ctx context.Context) (string, map[string]CheckResult) {
	names := make([]string, 0, len(hm.checkers))
	for name := range hm.checkers {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]CheckResult, len(names))
	var g errgroup.Group
	for i, name := range names {
		checker := hm.checkers[name]
		g.Go(func() error {
			results[i] = hm.runCheck(ctx, name, checker)
			return nil
		})
	}
	_ = g.Wait()

	checks := make(map[string]CheckResult, len(names))
	for i, name := range names {
		checks[name] = results[i]
	}
	return overallStatus(checks), checks
}

func (hm *HealthManager) runCheck(ctx context.Context, name string, checker HealthChecker) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, hm.timeout)
	defer cancel()

	start := time.Now()
	err := checker.CheckHealth(checkCtx)

	var result CheckResult
	switch {
	case err == nil:
		result = CheckResult{Status: StatusHealthy}
	case errors.Is(err, ErrDegraded):
		result = CheckResult{Status: StatusDegraded, Detail: err.Error()}
	case errors.Is(err, context.DeadlineExceeded) || checkCtx.Err() != nil:
		result = CheckResult{Status: StatusDegraded, Detail: "check timed out"}
	default:
		// Underlying errors can carry DSNs or hostnames; keep them out of the body.
		result = CheckResult{Status: StatusUnhealthy}
	}
	metrics.RecordHealthCheck(name, result.Status, time.Since(start))
	return result
}

func overallStatus(checks map[string]CheckResult) string {
	status := StatusHealthy
	for _, c := range checks {
		switch c.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}

// HealthHandler serves /health: every check plus version and uptime.
func (hm *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(hm.started)
	metrics.RecordUptime(uptime)
	hm.respond(w, r, "aggregate", true)
}

// LivenessHandler serves /health/live. It never consults dependencies so a
// broken store cannot get the process restarted.
func (hm *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        StatusHealthy,
		UptimeSeconds: int64(time.Since(hm.started).Seconds()),
		Timestamp:     time.Now().UTC(),
	})
}

// ReadinessHandler serves /health/ready: 503 when any check is unhealthy,
// 200 with status "degraded" when the API serves with reduced function.
func (hm *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	hm.respond(w, r, "ready", false)
}

// StartupHandler serves /health/startup: 503 until MarkStarted, then readiness.
func (hm *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	if !hm.ready.Load() {
		envelope := apperrors.NewServiceUnavailableError("startup in progress").
			WithDetails(map[string]interface{}{"probe": "startup"})
		apperrors.RespondWithEnvelope(w, r, envelope)
		return
	}
	hm.respond(w, r, "startup", false)
}

func (hm *HealthManager) respond(w http.ResponseWriter, r *http.Request, probe string, withVersion bool) {
	status, checks := hm.Check(r.Context())

	if status == StatusUnhealthy {
		var failing []string
		for name, c := range checks {
			if c.Status == StatusUnhealthy {
				failing = append(failing, name)
			}
		}
		sort.Strings(failing)

		envelope := apperrors.NewServiceUnavailableError(probe + " check failed").
			WithDetails(map[string]interface{}{
				"probe":  probe,
				"status": status,
				"checks": checks,
			})
		envelope, _ = envelope.WithContext(map[string]interface{}{"unhealthy_checks": failing})
		apperrors.RespondWithEnvelope(w, r, envelope)
		return
	}

	resp := HealthResponse{
		Status:        status,
		UptimeSeconds: int64(time.Since(hm.started).Seconds()),
		Timestamp:     time.Now().UTC(),
		Checks:        checks,
	}
	if withVersion {
		resp.Version = hm.version
	}
	writeJSON(w, http.StatusOK, resp)
}
