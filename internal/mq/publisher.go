package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypePurchaseReceived MessageType = "purchase.received"
	MessageTypeRunCompleted     MessageType = "run.completed"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// PurchaseReceivedPayload — payload события покупки.
//
// Event — документ платёжной системы как есть; он становится
// триггером workflow без преобразований.
type PurchaseReceivedPayload struct {
	Event map[string]any `json:"event"`
}

// RunCompletedPayload — payload события о завершённом run.
type RunCompletedPayload struct {
	RunID      uuid.UUID `json:"run_id"`
	Workflow   string    `json:"workflow"`
	Status     string    `json:"status"` // SUCCEEDED или FAILED
	Error      string    `json:"error,omitempty"`
	FailedNode string    `json:"failed_node,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishPurchaseReceived публикует событие покупки для fulfillment.
// Потребитель: Fulfiller.
func (p *Publisher) PublishPurchaseReceived(ctx context.Context, event map[string]any) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypePurchaseReceived,
		Payload:   PurchaseReceivedPayload{Event: event},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangePurchases, RoutingKeyPurchase, msg)
}

// PublishRunCompleted публикует событие о завершённом run.
// Потребители: внешние системы (аналитика, алертинг).
func (p *Publisher) PublishRunCompleted(ctx context.Context, payload RunCompletedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeRunCompleted,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeRuns, RoutingKeyCompleted, msg)
}
