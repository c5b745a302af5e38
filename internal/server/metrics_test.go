package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ixra/ixra-api/internal/errors"
	"github.com/ixra/ixra-api/internal/observability"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func startExporter(t *testing.T) {
	t.Helper()
	if err := observability.InitMetrics(observability.MetricsOptions{Namespace: "ixra_test"}); err != nil {
		t.Skipf("cannot bind exporter in this environment: %v", err)
	}
	t.Cleanup(func() { _ = observability.ShutdownMetrics() })
}

func stubScrape(t *testing.T, rt roundTripFunc) {
	t.Helper()
	original := metricsProxyClient
	metricsProxyClient = &http.Client{Transport: rt}
	t.Cleanup(func() { metricsProxyClient = original })
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestMetricsHandlerProxiesServiceMetrics(t *testing.T) {
	startExporter(t)

	var target string
	stubScrape(t, func(req *http.Request) (*http.Response, error) {
		target = req.URL.String()
		body := "# TYPE ixra_test_chat_requests_total counter\n" +
			"ixra_test_chat_requests_total{mode=\"complete\",state=\"completed\"} 3\n" +
			"ixra_test_rate_limit_decisions_total{decision=\"rejected\",scope=\"chat\"} 1\n"
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     make(http.Header),
		}
		resp.Header.Set("Content-Type", "text/plain; version=0.0.4")
		resp.Header.Set("Connection", "close")
		return resp, nil
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/metrics", observability.MetricsPort()), target)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Empty(t, rec.Header().Get("Connection"))
	assert.Contains(t, rec.Body.String(), "ixra_test_chat_requests_total")
	assert.Contains(t, rec.Body.String(), "ixra_test_rate_limit_decisions_total")
}

func TestMetricsHandlerReportsExporterFailure(t *testing.T) {
	startExporter(t)
	stubScrape(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, apperrors.CodeExternalService, body.Error.Code)
	assert.NotContains(t, body.Error.Message, "connection refused")
}

func TestMetricsHandlerDisabled(t *testing.T) {
	require.NoError(t, observability.ShutdownMetrics())

	rec := httptest.NewRecorder()
	MetricsHandler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, apperrors.CodeServiceUnavailable, decodeEnvelope(t, rec).Error.Code)
}
