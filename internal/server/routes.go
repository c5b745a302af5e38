package server

import (
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ixra/ixra-api/internal/appid"
	"github.com/ixra/ixra-api/internal/observability"
	"github.com/ixra/ixra-api/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	if hm := s.opts.Health; hm != nil {
		s.router.Get("/health", hm.HealthHandler)
		s.router.Get("/health/live", hm.LivenessHandler)
		s.router.Get("/health/ready", hm.ReadinessHandler)
		s.router.Get("/health/startup", hm.StartupHandler)
	}

	s.router.Get("/version", handlers.VersionHandler)
	s.router.Get("/metrics", MetricsHandler)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/quote", handlers.QuoteHandler)
		r.Get("/quote/options", handlers.QuoteOptionsHandler)

		if s.opts.Chat != nil {
			r.Method("POST", "/chat", handlers.NewChatHandler(s.opts.Chat, s.opts.MaxBodyBytes))
		}
		if s.opts.Contact != nil {
			r.Method("POST", "/contact", handlers.NewContactHandler(s.opts.Contact, s.opts.MaxBodyBytes))
		}
	})

	s.registerAdminEndpoint()
}

// registerAdminEndpoint optionally registers the admin signal endpoint
func (s *Server) registerAdminEndpoint() {
	tokenVar := appid.Get().EnvVar("ADMIN_TOKEN")
	logger := observability.ServerLogger

	if s.opts.AdminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + tokenVar + " set)")
		}
		return
	}

	// Bearer token auth, 10 requests per minute with a burst of 5
	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: s.opts.AdminToken,
		RateLimit: 10,
		RateBurst: 5,
		Manager:   nil, // use default global manager
	})

	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Info("Admin signal endpoint enabled",
			zap.String("path", "/admin/signal"),
			zap.String("auth", "bearer token"),
			zap.String("rate_limit", "10/min, burst 5"))
		logger.Warn("Admin endpoint enabled - ensure this server is not exposed to public internet")
	}
}
