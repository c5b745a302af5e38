package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/ascii"
	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ixra/ixra-api/internal/ailink"
	"github.com/ixra/ixra-api/internal/ailink/content"
	"github.com/ixra/ixra-api/internal/ailink/driver"
	"github.com/ixra/ixra-api/internal/ailink/prompt"
	"github.com/ixra/ixra-api/internal/appid"
	"github.com/ixra/ixra-api/internal/config"
	"github.com/ixra/ixra-api/internal/observability"
)

var doctorPing bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Run diagnostic checks on configuration, storage, the completion provider and lead delivery.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		logger := observability.CLILogger
		identity := appid.Get()

		logger.Info("=== " + identity.BinaryName + " doctor ===")
		logger.Info("")

		allChecks := true
		totalChecks := 7
		step := func(n int, label string) string {
			return fmt.Sprintf("[%d/%d] Checking %s...", n, totalChecks, label)
		}

		goVersion := runtime.Version()
		version := crucible.GetVersion()
		logger.Info(fmt.Sprintf("%s ✅ %s (gofulmen %s)", step(1, "runtime"), goVersion, version.Gofulmen),
			zap.String("go_version", goVersion),
			zap.String("os", runtime.GOOS),
			zap.String("arch", runtime.GOARCH))

		configPath := config.DefaultConfigPath()
		if configPath == "" {
			logger.Warn(step(2, "config directory") + " ⚠️  cannot resolve config directory")
			allChecks = false
		} else {
			logger.Info(fmt.Sprintf("%s ✅ %s (%s)", step(2, "config directory"), filepath.Dir(configPath), existenceStatus(fileExists(configPath))))
		}

		cfg, cfgErr := loadConfig()
		if cfgErr != nil {
			logger.Error(step(3, "configuration")+" ❌ invalid", zap.Error(cfgErr))
			logger.Warn("Remaining checks skipped")
			logger.Info("")
			logger.Info("=== End Diagnostics ===")
			return
		}
		logger.Info(step(3, "configuration")+" ✅ valid", zap.String("chat_mode", cfg.Chat.Mode))

		if !checkStore(ctx, cfg, step(4, "store")) {
			allChecks = false
		}

		if _, err := prompt.Resolve(cfg.Chat.PromptFile); err != nil {
			logger.Error(step(5, "system prompt")+" ❌ cannot load", zap.String("path", cfg.Chat.PromptFile), zap.Error(err))
			allChecks = false
		} else if cfg.Chat.PromptFile == "" {
			logger.Info(step(5, "system prompt") + " ✅ embedded default")
		} else {
			logger.Info(fmt.Sprintf("%s ✅ %s", step(5, "system prompt"), cfg.Chat.PromptFile))
		}

		if !checkProvider(ctx, cfg.AILink, step(6, "completion provider")) {
			allChecks = false
		}

		checkLeadDelivery(cfg, step(7, "lead delivery"))

		logger.Info("")
		if allChecks {
			logger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", identity.BinaryName))
		} else {
			logger.Warn("⚠️  Some checks failed. Review the output above for details.")
		}
		logger.Info("")
		logger.Info("=== End Diagnostics ===")
	},
}

func checkStore(ctx context.Context, cfg *config.Config, label string) bool {
	logger := observability.CLILogger
	if cfg.Store.Driver == config.StoreMemory {
		logger.Info(label + " ✅ memory (rate limits reset on restart; leads are not stored)")
		return true
	}

	db, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error(fmt.Sprintf("%s ❌ %s unavailable", label, cfg.Store.Driver), zap.Error(err))
		return false
	}
	defer db.Close() //nolint:errcheck

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.Ping(pingCtx); err != nil {
		logger.Error(fmt.Sprintf("%s ❌ %s ping failed", label, cfg.Store.Driver), zap.Error(err))
		return false
	}

	target := cfg.Store.URL
	if target == "" {
		target, _ = filepath.Abs(cfg.Store.Path)
		if info, statErr := os.Stat(target); statErr == nil {
			target = fmt.Sprintf("%s (%s)", target, formatFileSize(info.Size()))
		}
	} else {
		target = redactURL(target)
	}
	logger.Info(fmt.Sprintf("%s ✅ %s %s", label, cfg.Store.Driver, target))
	return true
}

func checkProvider(ctx context.Context, cfg ailink.Config, label string) bool {
	logger := observability.CLILogger
	cfg = cfg.WithDefaults()
	if !cfg.Configured() {
		logger.Warn(fmt.Sprintf("%s ⚠️  not configured (set %s)", label, appid.Get().EnvVar("AILINK_API_KEY")))
		logger.Info("       The chat endpoint answers with a setup notice until a key is present.")
		return true
	}

	if !doctorPing {
		logger.Info(fmt.Sprintf("%s ✅ %s/%s configured", label, cfg.Provider, cfg.Model))
		return true
	}

	drv, err := ailink.NewDriver(cfg)
	if err != nil {
		logger.Error(label+" ❌ driver unavailable", zap.Error(err))
		return false
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	maxTokens := 16
	_, err = drv.Complete(pingCtx, &driver.Request{
		Model:               cfg.Model,
		Messages:            []content.Message{content.TextMessage(content.RoleUser, "Reply with OK.")},
		MaxCompletionTokens: &maxTokens,
	})
	if err != nil {
		failure := ailink.ClassifyError(err)
		logger.Error(label+" ❌ ping failed",
			zap.String("failure_code", failure.Code),
			zap.Int("provider_status", failure.StatusCode),
			zap.Error(err))
		return false
	}

	logger.Info(fmt.Sprintf("%s ✅ %s/%s reachable (%s)", label, cfg.Provider, cfg.Model, time.Since(start).Round(time.Millisecond)))
	return true
}

func checkLeadDelivery(cfg *config.Config, label string) {
	logger := observability.CLILogger
	var sinks []string
	if cfg.Contact.SMTP.Enabled() {
		sinks = append(sinks, "smtp → "+cfg.Contact.SMTP.To)
	}
	if cfg.Contact.Kafka.Enabled() {
		sinks = append(sinks, fmt.Sprintf("kafka → %s@%s", cfg.Contact.Kafka.Topic, strings.Join(cfg.Contact.Kafka.Brokers, ",")))
	}
	if cfg.Store.Driver != config.StoreMemory {
		sinks = append(sinks, "store")
	}

	if len(sinks) == 0 {
		logger.Warn(label + " ⚠️  log only (configure contact.smtp or contact.kafka)")
		return
	}
	logger.Info(fmt.Sprintf("%s ✅ %s", label, strings.Join(sinks, "; ")))
}

var (
	doctorInitForce  bool
	doctorInitAPIKey string
)

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultConfigPath()
		if configPath == "" {
			return fmt.Errorf("config path not resolved")
		}

		if _, err := os.Stat(configPath); err == nil && !doctorInitForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", configPath)
		}

		apiKey := strings.TrimSpace(doctorInitAPIKey)
		if strings.EqualFold(apiKey, "prompt") {
			key, err := promptForValue(cmd.InOrStdin(), cmd.OutOrStdout(), "Enter completion provider API key (leave blank to skip): ")
			if err != nil {
				return err
			}
			apiKey = key
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}

		mode := os.FileMode(0o644)
		if apiKey != "" {
			mode = 0o600
		}

		if err := os.WriteFile(configPath, []byte(buildInitConfig(apiKey)), mode); err != nil {
			return fmt.Errorf("write config file: %w", err)
		}

		observability.CLILogger.Info("Config initialized", zap.String("path", configPath))
		return nil
	},
}

var doctorConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration status and paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.CLILogger
		id := appid.Get()
		configPath := config.DefaultConfigPath()

		logger.Info("Configuration:")
		logger.Info(fmt.Sprintf("  Config file:   %s (%s)", configPath, existenceStatus(fileExists(configPath))))
		logger.Info(fmt.Sprintf("  Default store: %s", config.DefaultStorePath()))

		logger.Info("")
		logger.Info("Environment:")
		for _, name := range []string{
			id.EnvVar("AILINK_API_KEY"),
			"OPENAI_API_KEY",
			id.EnvVar("STORE_URL"),
			id.EnvVar("ADMIN_TOKEN"),
			"SMTP_HOST",
			"CONTACT_EMAIL",
		} {
			logger.Info(fmt.Sprintf("  %s: %s", name, envStatus(name)))
		}

		cfg, err := loadConfig()
		if err != nil {
			logger.Warn("Config load failed", zap.Error(err))
			return nil
		}

		lines := []string{
			"Effective Settings",
			fmt.Sprintf("server       %s:%d", cfg.Server.Host, cfg.Server.Port),
			fmt.Sprintf("store        %s", cfg.Store.Driver),
			fmt.Sprintf("rate_limit   %d per %s", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window),
			fmt.Sprintf("chat.mode    %s (max %d turns)", cfg.Chat.Mode, cfg.Chat.MaxTurns),
			fmt.Sprintf("ailink       %s/%s configured=%t", cfg.AILink.Provider, cfg.AILink.Model, cfg.AILink.Configured()),
			fmt.Sprintf("smtp         %t", cfg.Contact.SMTP.Enabled()),
			fmt.Sprintf("kafka        %t", cfg.Contact.Kafka.Enabled()),
		}
		_, _ = fmt.Fprint(cmd.OutOrStdout(), ascii.DrawBox(strings.Join(lines, "\n"), 0))
		return nil
	},
}

var doctorValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := loadConfig(); err != nil {
			return err
		}
		observability.CLILogger.Info("Config is valid", zap.String("path", viper.ConfigFileUsed()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)
	doctorCmd.AddCommand(doctorConfigCmd)
	doctorCmd.AddCommand(doctorValidateCmd)

	doctorCmd.Flags().BoolVar(&doctorPing, "ping", false, "send a one-line completion to verify provider credentials")

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite existing config file")
	doctorInitCmd.Flags().StringVar(&doctorInitAPIKey, "api-key", "", "set provider api key or use 'prompt' to enter")
}

// formatFileSize returns a human-readable file size
func formatFileSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

// redactURL hides credentials embedded in a DSN.
func redactURL(raw string) string {
	at := strings.LastIndex(raw, "@")
	scheme := strings.Index(raw, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return raw
	}
	return raw[:scheme+3] + "***" + raw[at:]
}

func buildInitConfig(apiKey string) string {
	id := appid.Get()
	lines := []string{
		fmt.Sprintf("# %s config - created by '%s doctor init'", id.BinaryName, id.BinaryName),
		"server:",
		"  host: localhost",
		"  port: 8080",
		"store:",
		"  driver: memory  # memory | libsql | postgres",
		"rate_limit:",
		"  window: 1h",
		"  max_requests: 20",
		"chat:",
		"  mode: complete  # complete | stream",
		"  max_turns: 10",
		"ailink:",
		"  provider: " + ailink.DefaultProvider,
		"  model: " + ailink.DefaultModel,
	}

	if apiKey != "" {
		lines = append(lines, fmt.Sprintf("  api_key: %q", apiKey))
	} else {
		lines = append(lines, fmt.Sprintf("  # api_key: \"\"  # or set %s", id.EnvVar("AILINK_API_KEY")))
	}

	lines = append(lines,
		"contact:",
		"  smtp:",
		"    host: \"\"",
		"    port: 587",
		"    to: \"\"",
		"  kafka:",
		"    brokers: []",
		"    topic: ixra.leads",
	)

	return strings.Join(lines, "\n") + "\n"
}

func promptForValue(in io.Reader, out io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return "", err
	}
	value, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

func existenceStatus(exists bool) string {
	if exists {
		return "exists"
	}
	return "missing"
}

func envStatus(name string) string {
	if strings.TrimSpace(os.Getenv(name)) != "" {
		return "(set)"
	}
	return "(not set)"
}
