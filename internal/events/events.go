package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"pantry/internal/domain"
)

// Type тип события изменения позиции
type Type string

const (
	ItemCreated         Type = "ItemCreated"
	ItemQuantityChanged Type = "ItemQuantityChanged"
	ItemStatusChanged   Type = "ItemStatusChanged"
	ItemEdited          Type = "ItemEdited"
	ItemDeleted         Type = "ItemDeleted"
)

// ItemEvent событие, публикуемое после успешной записи
type ItemEvent struct {
	Type        Type               `json:"type"`
	ItemID      string             `json:"item_id"`
	OwnerID     string             `json:"owner_id"`
	Category    domain.Category    `json:"category"`
	Subcategory domain.Subcategory `json:"subcategory"`
	Name        string             `json:"name,omitempty"`
	Quantity    int64              `json:"quantity"`
	Status      domain.ItemStatus  `json:"status,omitempty"`
	OccurredAt  time.Time          `json:"occurred_at"`
}

// FromItem собирает событие из сохранённой позиции
func FromItem(t Type, it domain.Item) ItemEvent {
	return ItemEvent{
		Type:        t,
		ItemID:      it.ID,
		OwnerID:     it.OwnerID,
		Category:    it.Category,
		Subcategory: it.Subcategory,
		Name:        it.Name,
		Quantity:    it.Quantity,
		Status:      it.Status,
		OccurredAt:  it.UpdatedAt,
	}
}

// Publisher доставляет события потребителям
type Publisher interface {
	Publish(ctx context.Context, e ItemEvent) error
	Close() error
}

// Nop publisher, используется когда брокер не настроен
type Nop struct{}

func (Nop) Publish(context.Context, ItemEvent) error { return nil }
func (Nop) Close() error                             { return nil }

// MessageWriter subset of *kafka.Writer the publisher needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher пишет события в топик Kafka в JSON.
// Ключ сообщения = id позиции, чтобы события одной позиции шли в одну партицию.
type KafkaPublisher struct {
	w MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

// NewKafkaWriter создаёт writer для брокера и топика
func NewKafkaWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
		RequiredAcks: kafka.RequireOne,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e ItemEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Type, err)
	}
	msg := kafka.Message{
		Key:   []byte(e.ItemID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for item %s: %w", e.Type, e.ItemID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }
