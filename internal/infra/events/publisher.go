// Package events publishes pipeline run outcomes to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/bryanwahyu/callscore/internal/middleware"
)

const (
	EventCompleted = "report.completed"
	EventFailed    = "report.failed"
)

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers        []string `yaml:"brokers"`
	TopicCompleted string   `yaml:"topic_completed"`
	TopicFailed    string   `yaml:"topic_failed"`
	Enabled        bool     `yaml:"enabled"`
}

// Publisher writes run events to one topic per outcome. With Kafka disabled
// it only logs.
type Publisher struct {
	writerCompleted *kafka.Writer
	writerFailed    *kafka.Writer
	topicCompleted  string
	topicFailed     string
	enabled         bool
	metrics         *middleware.Metrics
}

// New creates a publisher. A nil or disabled config gives log-only mode.
func New(cfg *Config, m *middleware.Metrics) *Publisher {
	if m == nil {
		m = middleware.DefaultMetrics
	}
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{metrics: m}
	}
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			topicCompleted: cfg.TopicCompleted,
			topicFailed:    cfg.TopicFailed,
			metrics:        m,
		}
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{Dial: dialer.DialFunc}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCompleted", cfg.TopicCompleted).
		Str("topicFailed", cfg.TopicFailed).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerCompleted: newWriter(cfg.TopicCompleted),
		writerFailed:    newWriter(cfg.TopicFailed),
		topicCompleted:  cfg.TopicCompleted,
		topicFailed:     cfg.TopicFailed,
		enabled:         true,
		metrics:         m,
	}
}

// PublishCompleted publishes a finished run keyed by report id.
func (p *Publisher) PublishCompleted(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerCompleted, p.topicCompleted, EventCompleted, key, event)
}

// PublishFailed publishes a failed run keyed by report id.
func (p *Publisher) PublishFailed(ctx context.Context, key string, event any) error {
	return p.publish(ctx, p.writerFailed, p.topicFailed, EventFailed, key, event)
}

func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("topic", topic).
		Str("eventType", eventType).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	if !p.enabled || writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
		},
	}
	err = writer.WriteMessages(ctx, msg)
	p.metrics.RecordPublish(topic, err)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Str("key", key).Msg("Failed to write to Kafka")
		return err
	}
	return nil
}

// Enabled reports whether events actually reach Kafka.
func (p *Publisher) Enabled() bool { return p.enabled }

// Close closes both writers.
func (p *Publisher) Close() error {
	var err error
	for _, w := range []*kafka.Writer{p.writerCompleted, p.writerFailed} {
		if w == nil {
			continue
		}
		if e := w.Close(); e != nil {
			log.Error().Err(e).Str("topic", w.Topic).Msg("Error closing writer")
			err = e
		}
	}
	return err
}
