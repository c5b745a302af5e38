package ailink

import (
	"fmt"
	"strings"

	"github.com/ixra/ixra-api/internal/ailink/driver"
	"github.com/ixra/ixra-api/internal/ailink/driver/openai"
)

// NewDriver builds the completion driver named by cfg.Provider.
func NewDriver(cfg Config) (driver.Driver, error) {
	cfg = cfg.WithDefaults()
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai":
		client := openai.NewClient(cfg.BaseURL, cfg.APIKey)
		client.Timeout = cfg.Timeout
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}
