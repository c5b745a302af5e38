package cmd

import (
	"context"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ixra/ixra-api/internal/ailink/prompt"
	errwrap "github.com/ixra/ixra-api/internal/errors"
	"github.com/ixra/ixra-api/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run self-health check",
	Long:  "Run a self-health check to verify the server could start with the current configuration.",
	Run: func(cmd *cobra.Command, args []string) {
		logger := observability.CLILogger
		if logger == nil {
			ExitWithCodeStderr(foundry.ExitConfigInvalid, "Logger not initialized",
				errwrap.NewServiceUnavailableError("logger not initialized"))
			return
		}
		logger.Info("Running health check...")

		if versionInfo.Version == "" {
			logger.Error("❌ FAIL: Version information missing")
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Version information missing",
				errwrap.Wrap(context.Background(), errwrap.CodeConfigInvalid, nil, "version information missing"))
			return
		}
		logger.Debug("Version check passed", zap.String("version", versionInfo.Version))
		logger.Info("✅ Version information available")

		cfg, err := loadConfig()
		if err != nil {
			logger.Error("❌ FAIL: Configuration invalid", zap.Error(err))
			ExitWithCode(logger, foundry.ExitConfigInvalid, "Configuration invalid",
				errwrap.Wrap(context.Background(), errwrap.CodeConfigInvalid, err, "configuration invalid"))
			return
		}
		logger.Info("✅ Configuration valid", zap.String("store_driver", cfg.Store.Driver), zap.String("chat_mode", cfg.Chat.Mode))

		if _, err := prompt.Resolve(cfg.Chat.PromptFile); err != nil {
			logger.Error("❌ FAIL: System prompt cannot be loaded", zap.Error(err))
			ExitWithCode(logger, foundry.ExitFileNotFound, "System prompt cannot be loaded",
				errwrap.Wrap(context.Background(), errwrap.CodeConfigInvalid, err, "system prompt cannot be loaded"))
			return
		}
		logger.Info("✅ System prompt loads")

		logger.Info("")
		logger.Info("✅ All health checks passed")
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
