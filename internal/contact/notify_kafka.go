package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/ixra/ixra-api/internal/core"
)

const (
	// LeadSchemaVersion is the version of the lead event payload.
	LeadSchemaVersion = 1

	// EventTypeLeadCaptured is emitted for every accepted contact submission.
	EventTypeLeadCaptured = "ixra.lead.captured"
)

// KafkaConfig configures the lead event stream.
type KafkaConfig struct {
	Brokers []string      `mapstructure:"brokers"`
	Topic   string        `mapstructure:"topic"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether brokers are configured.
func (c KafkaConfig) Enabled() bool {
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// LeadCapturedEvent is the transport-neutral payload published per lead.
type LeadCapturedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Lead          core.Lead `json:"lead"`
}

// NewLeadCapturedEvent wraps a lead in an event envelope.
func NewLeadCapturedEvent(lead *core.Lead, now time.Time) *LeadCapturedEvent {
	return &LeadCapturedEvent{
		SchemaVersion: LeadSchemaVersion,
		EventType:     EventTypeLeadCaptured,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		Lead:          *lead,
	}
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes lead events to a Kafka topic, keyed by lead ID.
type KafkaNotifier struct {
	writer  messageWriter
	timeout time.Duration
	clock   func() time.Time
}

// NewKafkaNotifier builds a publisher for cfg.
func NewKafkaNotifier(cfg KafkaConfig) (*KafkaNotifier, error) {
	if !cfg.Enabled() {
		return nil, errors.New("kafka brokers are required")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	brokers := make([]string, 0, len(cfg.Brokers))
	for _, b := range cfg.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: cfg.Timeout,
	}
	return newKafkaNotifier(writer, cfg.Timeout), nil
}

func newKafkaNotifier(w messageWriter, timeout time.Duration) *KafkaNotifier {
	return &KafkaNotifier{writer: w, timeout: timeout, clock: time.Now}
}

func (n *KafkaNotifier) Name() string { return "kafka" }

func (n *KafkaNotifier) Notify(ctx context.Context, lead *core.Lead) error {
	if lead == nil {
		return errors.New("nil lead")
	}

	payload, err := json.Marshal(NewLeadCapturedEvent(lead, n.clock()))
	if err != nil {
		return fmt.Errorf("encode lead event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(lead.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeLeadCaptured)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish lead event: %w", err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
