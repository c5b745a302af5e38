package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ixra/ixra-api/internal/errors"
)

func passing(context.Context) error { return nil }

func providerUnset(context.Context) error {
	return fmt.Errorf("%w: completion provider credential not configured", ErrDegraded)
}

func storeDown(context.Context) error {
	return errors.New("dial tcp 10.0.0.5:5432: connect: connection refused")
}

func newManager(checks map[string]CheckerFunc) *HealthManager {
	hm := NewHealthManager("1.4.0")
	for name, fn := range checks {
		hm.RegisterChecker(name, fn)
	}
	return hm
}

func serveProbe(t *testing.T, h http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestReadinessReportsNamedChecks(t *testing.T) {
	hm := newManager(map[string]CheckerFunc{"store": passing, "prompt": passing, "provider": passing})

	rec := serveProbe(t, hm.ReadinessHandler, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeHealth(t, rec)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Version, "version is only on /health")
	assert.Equal(t, map[string]CheckResult{
		"store":    {Status: StatusHealthy},
		"prompt":   {Status: StatusHealthy},
		"provider": {Status: StatusHealthy},
	}, resp.Checks)
}

func TestReadinessDegradedWithoutProviderCredential(t *testing.T) {
	hm := newManager(map[string]CheckerFunc{"store": passing, "prompt": passing, "provider": providerUnset})

	rec := serveProbe(t, hm.ReadinessHandler, "/health/ready")
	require.Equal(t, http.StatusOK, rec.Code, "degraded still takes traffic")

	resp := decodeHealth(t, rec)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusDegraded, resp.Checks["provider"].Status)
	assert.Contains(t, resp.Checks["provider"].Detail, "credential not configured")
	assert.Equal(t, StatusHealthy, resp.Checks["store"].Status)
}

func TestReadinessUnavailableWhenStoreFails(t *testing.T) {
	hm := newManager(map[string]CheckerFunc{"store": storeDown, "prompt": passing, "provider": providerUnset})

	rec := serveProbe(t, hm.ReadinessHandler, "/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.5", "dependency errors stay out of the body")

	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.CodeServiceUnavailable, body.Error.Code)
	assert.Equal(t, "ready", body.Error.Details["probe"])

	checks, isMap := body.Error.Details["checks"].(map[string]interface{})
	require.True(t, isMap)
	assert.Equal(t, StatusUnhealthy, checks["store"].(map[string]interface{})["status"])
	assert.Equal(t, StatusDegraded, checks["provider"].(map[string]interface{})["status"])
}

func TestCheckTimesOutAsDegraded(t *testing.T) {
	hm := newManager(map[string]CheckerFunc{
		"store": func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})
	hm.timeout = 20 * time.Millisecond

	status, checks := hm.Check(context.Background())
	assert.Equal(t, StatusDegraded, status)
	assert.Equal(t, CheckResult{Status: StatusDegraded, Detail: "check timed out"}, checks["store"])
}

func TestHealthHandlerIncludesVersion(t *testing.T) {
	hm := newManager(map[string]CheckerFunc{"prompt": passing})

	rec := serveProbe(t, hm.HealthHandler, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeHealth(t, rec)
	assert.Equal(t, "1.4.0", resp.Version)
	assert.Equal(t, StatusHealthy, resp.Status)
}

func TestLivenessIgnoresDependencies(t *testing.T) {
	hm := newManager(map[string]CheckerFunc{"store": storeDown})

	rec := serveProbe(t, hm.LivenessHandler, "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeHealth(t, rec)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestStartupWaitsForListener(t *testing.T) {
	hm := newManager(map[string]CheckerFunc{"provider": providerUnset})

	rec := serveProbe(t, hm.StartupHandler, "/health/startup")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	hm.MarkStarted()
	rec = serveProbe(t, hm.StartupHandler, "/health/startup")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StatusDegraded, decodeHealth(t, rec).Status)
}
