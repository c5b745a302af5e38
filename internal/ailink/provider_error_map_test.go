package ailink

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ixra/ixra-api/internal/ailink/driver"
)

func TestClassifyErrorStatusCodes(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		wantCode   string
	}{
		{"auth", 401, "AILINK_PROVIDER_AUTH"},
		{"forbidden", 403, "AILINK_PROVIDER_AUTH"},
		{"rate", 429, "AILINK_PROVIDER_RATE_LIMIT"},
		{"bad", 400, "AILINK_PROVIDER_BAD_REQUEST"},
		{"unavail", 503, "AILINK_PROVIDER_UNAVAILABLE"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", &driver.ProviderError{Provider: "openai", StatusCode: tc.statusCode, Message: "boom"})
			mapped := ClassifyError(err)
			require.NotNil(t, mapped)
			require.Equal(t, tc.wantCode, mapped.Code)
			require.Equal(t, tc.statusCode, mapped.StatusCode)
		})
	}
}

func TestClassifyErrorContext(t *testing.T) {
	require.Nil(t, ClassifyError(nil))
	require.Equal(t, "AILINK_PROVIDER_TIMEOUT", ClassifyError(fmt.Errorf("x: %w", context.DeadlineExceeded)).Code)
	require.Equal(t, "AILINK_CLIENT_CANCELED", ClassifyError(context.Canceled).Code)
	require.Equal(t, "AILINK_PROVIDER_ERROR", ClassifyError(errors.New("dial tcp: refused")).Code)
}

func TestConfigConfigured(t *testing.T) {
	require.False(t, Config{}.Configured())
	require.False(t, Config{APIKey: "  "}.Configured())
	require.False(t, Config{APIKey: "sk-your-key-here"}.Configured())
	require.False(t, Config{APIKey: "changeme", PlaceholderKeys: []string{"changeme"}}.Configured())
	require.True(t, Config{APIKey: "sk-live-123"}.Configured())
}

func TestNewDriver(t *testing.T) {
	drv, err := NewDriver(Config{APIKey: "sk-live-123"})
	require.NoError(t, err)
	require.Equal(t, "openai", drv.Name())
	_, streams := drv.(driver.Streamer)
	require.True(t, streams)

	_, err = NewDriver(Config{Provider: "carrier-pigeon"})
	require.ErrorContains(t, err, "unsupported ai provider")

	cfg := Config{}.WithDefaults()
	require.Equal(t, DefaultModel, cfg.Model)
	require.Equal(t, 300, cfg.MaxCompletionTokens)
	require.Equal(t, DefaultTimeout, cfg.Timeout)
}
