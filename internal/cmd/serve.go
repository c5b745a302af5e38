package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ixra/ixra-api/internal/ailink"
	"github.com/ixra/ixra-api/internal/ailink/driver"
	"github.com/ixra/ixra-api/internal/ailink/prompt"
	"github.com/ixra/ixra-api/internal/appid"
	"github.com/ixra/ixra-api/internal/chat"
	"github.com/ixra/ixra-api/internal/config"
	"github.com/ixra/ixra-api/internal/contact"
	"github.com/ixra/ixra-api/internal/core/engine"
	"github.com/ixra/ixra-api/internal/core/store"
	errwrap "github.com/ixra/ixra-api/internal/errors"
	"github.com/ixra/ixra-api/internal/metrics"
	"github.com/ixra/ixra-api/internal/observability"
	"github.com/ixra/ixra-api/internal/server"
	"github.com/ixra/ixra-api/internal/server/handlers"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API with graceful shutdown support.

Routes:
  POST /api/chat           rate-limited assistant
  POST /api/contact        contact form intake
  GET  /api/quote          price estimate
  GET  /api/quote/options  estimator option catalog

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Reload the config file and system prompt`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	identity := appid.Get()

	cfg, err := loadConfig()
	if err != nil {
		return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "configuration is invalid")
	}

	observability.InitServerLogger(observability.ServerLoggerOptions{
		Service:     identity.BinaryName,
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
		Namespace:   identity.TelemetryNamespace,
	})
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(observability.MetricsOptions{
			Namespace: identity.TelemetryNamespace,
			Port:      cfg.Metrics.Port,
		}); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
	}

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("version", versionInfo.Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Driver),
		zap.String("chat_mode", cfg.Chat.Mode))

	hm := handlers.NewHealthManager(versionInfo.Version)
	hm.RegisterChecker("provider", providerHealthChecker{cfg: cfg.AILink})
	if cfg.Metrics.Enabled {
		hm.RegisterChecker("telemetry", telemetryHealthChecker{})
	}

	// Storage: in-process windows for "memory", shared SQL tables otherwise.
	var (
		rateStore engine.RateLimitStore
		leadStore contact.LeadStore
		db        *store.Store
	)
	if cfg.Store.Driver == config.StoreMemory {
		rateStore = store.NewMemoryRateLimits()
		logger.Info("Using in-memory rate limits; leads are delivered but not stored")
	} else {
		db, err = openStore(ctx, cfg)
		if err != nil {
			return errwrap.WrapDatabaseError(ctx, err, "store initialization failed")
		}
		rateStore, leadStore = db, db
		hm.RegisterChecker("store", storeHealthChecker{db: db})
	}

	limiter := engine.NewRateLimiter(rateStore)
	if cfg.RateLimit.SweepInterval > 0 {
		limiter.SweepInterval = cfg.RateLimit.SweepInterval
	}

	prompts, err := prompt.NewSource(cfg.Chat.PromptFile)
	if err != nil {
		return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "system prompt could not be loaded")
	}
	hm.RegisterChecker("prompt", promptHealthChecker{prompts: prompts})

	var drv driver.Driver
	if cfg.AILink.Configured() {
		drv, err = ailink.NewDriver(cfg.AILink)
		if err != nil {
			return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "completion provider misconfigured")
		}
	} else {
		logger.Warn("No completion provider credential; the assistant will answer with a setup notice",
			zap.String("env", identity.EnvVar("AILINK_API_KEY")))
	}

	proxy := chat.NewProxy(limiter, drv, prompts, chat.Options{
		Mode: chat.ParseMode(cfg.Chat.Mode),
		Limit: engine.RateLimit{
			RequestsPerWindow: cfg.RateLimit.MaxRequests,
			WindowDuration:    cfg.RateLimit.Window,
		},
		MaxTurns:     cfg.Chat.MaxTurns,
		MaxTurnChars: cfg.Chat.MaxTurnChars,
		AILink:       cfg.AILink,
	}, logger)

	notifiers, err := buildNotifiers(cfg)
	if err != nil {
		return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "lead delivery misconfigured")
	}
	contactSvc := contact.NewService(leadStore, logger, notifiers...)

	srv := server.New(server.Options{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Chat:         proxy,
		Contact:      contactSvc,
		AdminToken:   os.Getenv(identity.EnvVar("ADMIN_TOKEN")),
		Health:       healthRoutes(cfg, hm),
	})

	watchCtx, stopWatch := context.WithCancel(ctx)
	if cfg.Chat.WatchPrompt && prompts.Path() != "" {
		go func() {
			err := prompts.Watch(watchCtx, func(p *prompt.Prompt, err error) {
				metrics.RecordReload(metrics.ReloadPrompt, metrics.ReloadResult(err))
				if err != nil {
					logger.Warn("System prompt reload failed; keeping previous prompt", zap.Error(err))
					return
				}
				logger.Info("System prompt reloaded", zap.String("slug", p.Config.Slug), zap.String("path", prompts.Path()))
			})
			if err != nil {
				logger.Warn("System prompt watcher stopped", zap.Error(err))
			}
		}()
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: HTTP server, then delivery and storage, then logs.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		stopWatch()
		var errs []error
		if err := contactSvc.Close(); err != nil {
			errs = append(errs, err)
		}
		if db != nil {
			if err := db.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := observability.ShutdownMetrics(); err != nil {
			errs = append(errs, err)
		}
		if err := errors.Join(errs...); err != nil {
			logger.Warn("Releasing resources returned errors", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}

		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: reloading configuration")

		if err := viper.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				logger.Error("Failed to reload config file",
					zap.String("file", viper.ConfigFileUsed()),
					zap.Error(err))
				metrics.RecordReload(metrics.ReloadConfig, metrics.ReloadFailed)
				return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
			}
		}
		if _, err := config.Load(viper.GetViper()); err != nil {
			logger.Error("Reloaded config is invalid; keeping current settings", zap.Error(err))
			metrics.RecordReload(metrics.ReloadConfig, metrics.ReloadInvalid)
			return errwrap.Wrap(ctx, errwrap.CodeConfigInvalid, err, "config reload failed")
		}
		metrics.RecordReload(metrics.ReloadConfig, metrics.ReloadOK)

		p, err := prompts.Reload()
		metrics.RecordReload(metrics.ReloadPrompt, metrics.ReloadResult(err))
		if err != nil {
			logger.Warn("System prompt reload failed; keeping previous prompt", zap.Error(err))
		} else {
			logger.Info("System prompt reloaded", zap.String("slug", p.Config.Slug))
		}

		logger.Info("Configuration reloaded; server, store, and provider settings apply on restart",
			zap.String("file", viper.ConfigFileUsed()))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		stopWatch()
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	stopWatch()
	return nil
}

// buildNotifiers always logs leads and adds mail and event delivery when configured.
func buildNotifiers(cfg *config.Config) ([]contact.Notifier, error) {
	logger := observability.ServerLogger
	notifiers := []contact.Notifier{contact.NewLogNotifier(logger)}

	if cfg.Contact.SMTP.Enabled() {
		n, err := contact.NewSMTPNotifier(cfg.Contact.SMTP)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
		logger.Info("Lead email delivery enabled", zap.String("smtp_host", cfg.Contact.SMTP.Host))
	} else {
		logger.Warn("SMTP not configured; leads are only logged",
			zap.String("env", appid.Get().EnvVar("CONTACT_SMTP_HOST")))
	}

	if cfg.Contact.Kafka.Enabled() {
		n, err := contact.NewKafkaNotifier(cfg.Contact.Kafka)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
		logger.Info("Lead event publishing enabled",
			zap.Strings("brokers", cfg.Contact.Kafka.Brokers),
			zap.String("topic", cfg.Contact.Kafka.Topic))
	}

	return notifiers, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "localhost", "server host")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "server port")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
}
