// Package kafka publishes turn events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/tabletalk/pkg/eventstream"
)

// DefaultTopic is used when Config.Topic is empty.
const DefaultTopic = "tabletalk.turns"

// Config holds the Kafka publisher settings.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout bounds a single produce call.
	WriteTimeout time.Duration
}

// Publisher writes TurnEvents as JSON, keyed by thread id so a thread's events
// land on one partition in order.
type Publisher struct {
	writer  *kafkago.Writer
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher builds a synchronous kafka-go writer. No connection is made
// until the first publish.
func NewPublisher(c Config, logger *slog.Logger) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(c.Brokers...),
		Topic:        c.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: c.WriteTimeout,
	}

	logger.Debug("kafka publisher configured", "brokers", c.Brokers, "topic", c.Topic)

	return &Publisher{writer: w, timeout: c.WriteTimeout, logger: logger}, nil
}

// PublishTurn serializes and writes event.
func (p *Publisher) PublishTurn(ctx context.Context, event *eventstream.TurnEvent) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing turn event %s: %w", event.ID, err)
	}

	p.logger.Debug("turn event published", "event_id", event.ID, "thread_id", event.ThreadID)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func toMessage(event *eventstream.TurnEvent) (kafkago.Message, error) {
	if event == nil {
		return kafkago.Message{}, eventstream.ErrNilTurnEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("encoding turn event: %w", err)
	}

	return kafkago.Message{
		Key:   []byte(event.ThreadID),
		Value: payload,
		Time:  event.CreatedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(event.SchemaVersion))},
		},
	}, nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
