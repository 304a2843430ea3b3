// Package kafka ships audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"saldo/internal/platform/kafka/producer"
	dErrors "saldo/pkg/domain-errors"
	audit "saldo/pkg/platform/audit"
)

// Producer is the subset of producer.Producer the store needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Store publishes each event as a JSON record keyed by login, so one
// user's events stay ordered within a partition. It is write-only.
type Store struct {
	producer Producer
	topic    string
}

func New(p Producer, topic string) *Store {
	return &Store{producer: p, topic: topic}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	msg := &producer.Message{
		Topic: s.topic,
		Key:   []byte(event.Login),
		Value: payload,
		Headers: map[string]string{
			"action":     string(event.Action),
			"request_id": event.RequestID,
		},
	}
	if err := s.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}

// ListRecent is not supported: the topic is consumed by downstream systems.
func (s *Store) ListRecent(context.Context, int) ([]audit.Event, error) {
	return nil, dErrors.New(dErrors.CodeBadRequest, "kafka audit store is write-only")
}
