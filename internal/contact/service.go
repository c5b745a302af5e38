package contact

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ixra/ixra-api/internal/core"
	"github.com/ixra/ixra-api/internal/metrics"
)

// LeadStore persists accepted leads.
type LeadStore interface {
	SaveLead(ctx context.Context, lead *core.Lead) error
}

// Notifier delivers a lead to one channel (log, mail, event stream).
type Notifier interface {
	Name() string
	Notify(ctx context.Context, lead *core.Lead) error
	Close() error
}

// Service accepts contact submissions.
type Service struct {
	store     LeadStore
	notifiers []Notifier
	logger    *logging.Logger

	Clock func() time.Time
}

// NewService builds a service. store may be nil, in which case leads are only
// delivered to the notifiers.
func NewService(store LeadStore, logger *logging.Logger, notifiers ...Notifier) *Service {
	return &Service{
		store:     store,
		notifiers: notifiers,
		logger:    logger,
		Clock:     func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates, persists, and delivers a submission.
//
// A *ValidationError is returned for bad input. Once a store has saved the
// lead, delivery failures are logged and counted but not returned, so a
// visitor retrying after an error page cannot create a duplicate. Without a
// store the notifiers are the only record, and their failures are returned.
func (s *Service) Submit(ctx context.Context, sub Submission, clientID string) (*core.Lead, error) {
	if err := sub.Validate(); err != nil {
		metrics.RecordContactSubmission("invalid")
		return nil, err
	}
	sub = sub.Normalize()

	lead := &core.Lead{
		ID:              uuid.NewString(),
		Name:            sub.Name,
		Email:           sub.Email,
		Company:         sub.Company,
		ServiceType:     sub.ServiceType,
		SimulationTypes: sub.SimulationTypes,
		Message:         sub.Message,
		ClientID:        clientID,
		CreatedAt:       s.Clock(),
	}

	if s.store != nil {
		if err := s.store.SaveLead(ctx, lead); err != nil {
			s.logError("contact_persist_failed", lead, err)
			metrics.RecordContactSubmission("failed")
			return nil, fmt.Errorf("save lead: %w", err)
		}
	}

	var errs []error
	for _, n := range s.notifiers {
		err := n.Notify(ctx, lead)
		metrics.RecordLeadDelivery(n.Name(), err == nil)
		if err != nil {
			s.logError("contact_delivery_failed", lead, err, zap.String("channel", n.Name()))
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	if len(errs) > 0 {
		if s.store != nil {
			metrics.RecordContactSubmission("stored_undelivered")
			return lead, nil
		}
		metrics.RecordContactSubmission("failed")
		return lead, errors.Join(errs...)
	}

	metrics.RecordContactSubmission("accepted")
	return lead, nil
}

// Close releases notifier resources.
func (s *Service) Close() error {
	var errs []error
	for _, n := range s.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) logError(msg string, lead *core.Lead, err error, extra ...zap.Field) {
	if s.logger == nil {
		return
	}
	fields := append([]zap.Field{zap.String("lead_id", lead.ID), zap.Error(err)}, extra...)
	s.logger.Error(msg, fields...)
}
