package contact

import (
	"context"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/ixra/ixra-api/internal/core"
)

// LogNotifier records every lead in the structured log.
type LogNotifier struct {
	logger *logging.Logger
}

// NewLogNotifier writes leads to logger.
func NewLogNotifier(logger *logging.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, lead *core.Lead) error {
	if n.logger == nil {
		return nil
	}
	d := Describe(lead)
	n.logger.Info("Contact form submission",
		zap.String("lead_id", lead.ID),
		zap.String("name", d.Name),
		zap.String("email", d.Email),
		zap.String("company", d.Company),
		zap.String("service_type", d.ServiceType),
		zap.String("simulation_types", d.SimulationTypes),
		zap.String("message", d.Message),
		zap.String("timestamp", d.Timestamp))
	return nil
}

func (n *LogNotifier) Close() error { return nil }

// LeadSummary is a lead rendered with placeholders for missing optional fields.
type LeadSummary struct {
	Name            string
	Email           string
	Company         string
	ServiceType     string
	SimulationTypes string
	Message         string
	Timestamp       string
}

// Describe renders a lead for humans.
func Describe(lead *core.Lead) LeadSummary {
	s := LeadSummary{
		Name:            lead.Name,
		Email:           lead.Email,
		Company:         orDefault(lead.Company, "Not provided"),
		ServiceType:     orDefault(lead.ServiceType, "Not specified"),
		SimulationTypes: orDefault(strings.Join(lead.SimulationTypes, ", "), "None selected"),
		Message:         orDefault(lead.Message, "No message"),
		Timestamp:       lead.CreatedAt.UTC().Format(time.RFC3339),
	}
	return s
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
