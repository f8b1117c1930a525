// Package notify forwards evaluated alert records to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/kjstillabower/soil-monitor-service/internal/models"
)

var (
	ErrPublisherClosed = errors.New("publisher is closed")
	ErrSerialize       = errors.New("failed to serialize alert event")
)

// Publisher delivers one alert event per evaluation.
type Publisher interface {
	Publish(ctx context.Context, event AlertEvent) error
	Close() error
}

// AlertEvent is the wire payload written for each evaluation.
type AlertEvent struct {
	ID         string               `json:"id"`
	Schedule   string               `json:"schedule"`
	Policy     string               `json:"policy"`
	Reading    models.Reading       `json:"reading"`
	Alerts     []models.AlertRecord `json:"alerts"`
	IsRealData bool                 `json:"isRealData"`
	CreatedAt  time.Time            `json:"createdAt"`
}

// NewAlertEvent stamps a fresh event ID.
func NewAlertEvent(schedule, policy string, r models.Reading, records []models.AlertRecord, now time.Time) AlertEvent {
	return AlertEvent{
		ID:         uuid.NewString(),
		Schedule:   schedule,
		Policy:     policy,
		Reading:    r,
		Alerts:     records,
		IsRealData: r.IsRealData,
		CreatedAt:  now.UTC(),
	}
}

// NoopPublisher discards events. Used when no topic is configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, AlertEvent) error { return nil }
func (NoopPublisher) Close() error                              { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes alert events as JSON, keyed by schedule so each schedule stays ordered.
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	closed atomic.Bool
}

// NewKafkaPublisher builds a synchronous writer for topic.
func NewKafkaPublisher(brokers []string, topic string, writeTimeout time.Duration) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafka.RequireOne,
		MaxAttempts:            3,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{writer: w, topic: topic}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, event AlertEvent) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	msg := kafka.Message{
		Key:   []byte(event.Schedule),
		Value: payload,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "policy", Value: []byte(event.Policy)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending writes. Safe to call more than once.
func (p *KafkaPublisher) Close() error {
	if p.closed.Swap(true) {
		return nil
	}
	return p.writer.Close()
}
