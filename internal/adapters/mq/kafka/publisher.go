// Package kafka publishes pipeline outcomes to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/okian/commentsense/internal/domain/model"
	"github.com/okian/commentsense/pkg/logger"
	"github.com/okian/commentsense/pkg/metrics"
)

const (
	dialTimeout  = 10 * time.Second
	writeTimeout = 10 * time.Second
	batchTimeout = 10 * time.Millisecond

	headerEventID = "event_id"
	headerStatus  = "status"
)

// MessageWriter is the subset of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config holds publisher settings. No brokers means log-only mode.
type Config struct {
	Brokers []string
	Topic   string
}

// Publisher writes outcomes keyed by ticket id.
type Publisher struct {
	writer  MessageWriter
	topic   string
	enabled bool
	logger  logger.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithWriter replaces the Kafka writer and enables publishing.
func WithWriter(w MessageWriter) Option {
	return func(p *Publisher) {
		if w != nil {
			p.writer = w
			p.enabled = true
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// New creates a publisher. Without brokers it only logs outcomes.
func New(cfg Config, opts ...Option) *Publisher {
	p := &Publisher{
		topic:  cfg.Topic,
		logger: logger.Get().Named("kafka"),
	}

	if len(cfg.Brokers) > 0 {
		dialer := &kafka.Dialer{Timeout: dialTimeout, DualStack: true}
		p.writer = &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: batchTimeout,
			WriteTimeout: writeTimeout,
			RequiredAcks: kafka.RequireOne,
			Transport:    &kafka.Transport{Dial: dialer.DialFunc},
		}
		p.enabled = true
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.enabled {
		p.logger.Info(context.Background(), "outcome publisher initialized",
			logger.Any("brokers", cfg.Brokers),
			logger.String("topic", cfg.Topic),
		)
	} else {
		p.logger.Info(context.Background(), "kafka disabled, outcomes are only logged")
	}
	return p
}

// Enabled reports whether outcomes are written to Kafka.
func (p *Publisher) Enabled() bool { return p.enabled }

// Publish writes one outcome. Messages for the same ticket share a key
// and therefore a partition.
func (p *Publisher) Publish(ctx context.Context, o model.Outcome) error {
	start := time.Now()

	payload, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal outcome %s: %w", o.EventID, err)
	}

	if !p.enabled {
		p.logger.Debug(ctx, "outcome", logger.String("event_id", o.EventID), logger.String("payload", string(payload)))
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(o.TicketID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(o.EventID)},
			{Key: headerStatus, Value: []byte(status(o))},
		},
	}
	err = p.writer.WriteMessages(ctx, msg)
	metrics.RecordDependencyCall("kafka", float64(time.Since(start).Milliseconds()), err)
	if err != nil {
		return fmt.Errorf("publish outcome %s to %s: %w", o.EventID, p.topic, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func status(o model.Outcome) string {
	switch {
	case o.Skipped:
		return "skipped"
	case o.FailedStep != "" || o.Error != "":
		return "failed"
	default:
		return "processed"
	}
}
