// Package config provides centralized configuration management for the IXRA
// site backend. Configuration is layered by viper: defaults, an optional YAML
// file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/pathfinder"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ixra/ixra-api/internal/ailink"
	"github.com/ixra/ixra-api/internal/appid"
)

// Store drivers.
const (
	StoreMemory   = "memory"
	StoreLibsql   = "libsql"
	StorePostgres = "postgres"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// legacyEnv maps config keys to unprefixed variables commonly found in .env
// files. Prefixed IXRA_* variables take precedence.
var legacyEnv = map[string][]string{
	"ailink.api_key":        {"OPENAI_API_KEY"},
	"contact.smtp.host":     {"SMTP_HOST"},
	"contact.smtp.port":     {"SMTP_PORT"},
	"contact.smtp.username": {"SMTP_USER"},
	"contact.smtp.password": {"SMTP_PASS"},
	"contact.smtp.to":       {"CONTACT_EMAIL"},
}

// NewViper returns a viper instance with defaults and environment bindings.
func NewViper() *viper.Viper {
	v := viper.New()
	Bind(v)
	return v
}

// Bind installs defaults and environment lookups on v.
func Bind(v *viper.Viper) {
	id := appid.Get()
	v.SetEnvPrefix(id.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	for key, names := range legacyEnv {
		args := append([]string{key, id.EnvVar(strings.ReplaceAll(key, ".", "_"))}, names...)
		_ = v.BindEnv(args...)
	}
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 256<<10)

	// Store defaults
	v.SetDefault("store.driver", StoreMemory)
	v.SetDefault("store.path", DefaultStorePath())
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	// Chat quota
	v.SetDefault("rate_limit.window", "1h")
	v.SetDefault("rate_limit.max_requests", 20)
	v.SetDefault("rate_limit.sweep_interval", "5m")

	// Chat proxy
	v.SetDefault("chat.mode", "complete")
	v.SetDefault("chat.max_turns", 10)
	v.SetDefault("chat.max_turn_chars", 4000)
	v.SetDefault("chat.prompt_file", "")
	v.SetDefault("chat.watch_prompt", true)

	// Completion provider
	v.SetDefault("ailink.provider", ailink.DefaultProvider)
	v.SetDefault("ailink.base_url", "")
	v.SetDefault("ailink.api_key", "")
	v.SetDefault("ailink.model", ailink.DefaultModel)
	v.SetDefault("ailink.max_completion_tokens", ailink.DefaultMaxCompletionTokens)
	v.SetDefault("ailink.reasoning_effort", "")
	v.SetDefault("ailink.timeout", ailink.DefaultTimeout.String())
	v.SetDefault("ailink.placeholder_keys", ailink.DefaultPlaceholderKeys)

	// Lead delivery
	v.SetDefault("contact.smtp.host", "")
	v.SetDefault("contact.smtp.port", 587)
	v.SetDefault("contact.smtp.username", "")
	v.SetDefault("contact.smtp.password", "")
	v.SetDefault("contact.smtp.from", "")
	v.SetDefault("contact.smtp.to", "")
	v.SetDefault("contact.kafka.brokers", []string{})
	v.SetDefault("contact.kafka.topic", "ixra.leads")
	v.SetDefault("contact.kafka.timeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.environment", "production")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Health check defaults
	v.SetDefault("health.enabled", true)
}

// Load decodes the settings held by v into a validated Config and makes it
// the current configuration. Safe to call again on reload.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, errors.New("config: nil viper instance")
	}

	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

func (c *Config) normalize() {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.Chat.Mode = strings.ToLower(strings.TrimSpace(c.Chat.Mode))
	c.AILink = c.AILink.WithDefaults()

	brokers := c.Contact.Kafka.Brokers[:0]
	for _, b := range c.Contact.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.Contact.Kafka.Brokers = brokers
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case StoreMemory, StoreLibsql:
	case StorePostgres:
		if strings.TrimSpace(c.Store.URL) == "" {
			errs = append(errs, errors.New("store.url is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, libsql, postgres", c.Store.Driver))
	}

	switch c.Chat.Mode {
	case "complete", "stream":
	default:
		errs = append(errs, fmt.Errorf("chat.mode %q is not one of complete, stream", c.Chat.Mode))
	}

	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	if c.RateLimit.MaxRequests < 1 {
		errs = append(errs, errors.New("rate_limit.max_requests must be at least 1"))
	}
	if c.Chat.MaxTurns < 1 {
		errs = append(errs, errors.New("chat.max_turns must be at least 1"))
	}
	if c.Chat.MaxTurnChars < 1 {
		errs = append(errs, errors.New("chat.max_turn_chars must be at least 1"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}

	return errors.Join(errs...)
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// DefaultConfigDir returns the XDG-compliant config directory for the app.
func DefaultConfigDir() string {
	return gfconfig.GetAppConfigDir(appid.Get().ConfigName)
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	dir := DefaultConfigDir()
	if strings.TrimSpace(dir) == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	id := appid.Get()
	dataDir := gfconfig.GetAppDataDir(id.ConfigName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + id.BinaryName + ".db"
	}
	return filepath.Join(dataDir, id.BinaryName+".db")
}

// FindProjectRoot walks up from the working directory to the nearest
// repository root (go.mod or .git). Used to locate a checked-in config/ dir
// when the binary runs from a subdirectory.
func FindProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	root, err := pathfinder.FindRepositoryRoot(cwd, []string{"go.mod", ".git"}, pathfinder.WithMaxDepth(10))
	if err != nil {
		return "", fmt.Errorf("project root not found: %w", err)
	}
	return root, nil
}
