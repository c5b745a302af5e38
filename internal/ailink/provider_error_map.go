package ailink

import (
	"context"
	"errors"
	"strings"

	"github.com/ixra/ixra-api/internal/ailink/driver"
)

// ProviderFailure classifies a driver error for logs and metrics.
type ProviderFailure struct {
	Code       string
	Message    string
	StatusCode int
	Details    string
}

// ClassifyError maps a driver error to a stable failure code.
func ClassifyError(err error) *ProviderFailure {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ProviderFailure{Code: "AILINK_PROVIDER_TIMEOUT", Message: "provider request timed out"}
	}
	if errors.Is(err, context.Canceled) {
		return &ProviderFailure{Code: "AILINK_CLIENT_CANCELED", Message: "request canceled by client"}
	}

	var perr *driver.ProviderError
	if errors.As(err, &perr) && perr != nil {
		status := perr.StatusCode
		details := strings.TrimSpace(perr.Message)
		failure := &ProviderFailure{StatusCode: status, Details: details}
		switch {
		case status == 401 || status == 403:
			failure.Code, failure.Message = "AILINK_PROVIDER_AUTH", "provider authentication failed"
		case status == 429:
			failure.Code, failure.Message = "AILINK_PROVIDER_RATE_LIMIT", "provider rate limited"
		case status >= 500 && status <= 599:
			failure.Code, failure.Message = "AILINK_PROVIDER_UNAVAILABLE", "provider unavailable"
		case status >= 400 && status <= 499:
			failure.Code, failure.Message = "AILINK_PROVIDER_BAD_REQUEST", "provider rejected request"
		default:
			failure.Code, failure.Message = "AILINK_PROVIDER_ERROR", "provider request failed"
		}
		return failure
	}

	return &ProviderFailure{Code: "AILINK_PROVIDER_ERROR", Message: "provider request failed", Details: err.Error()}
}
