package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Machina/internal/telemetry"
)

// Handler — функция обработки сообщения.
// Возвращает error, если обработка не удалась (сообщение будет nack).
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — доставленное сообщение с методами ack/nack.
type Delivery struct {
	// Message — распарсенное сообщение.
	Message Message

	// Raw — сырое AMQP сообщение.
	Raw amqp.Delivery
}

// Ack подтверждает успешную обработку сообщения.
func (d *Delivery) Ack() error {
	return d.Raw.Ack(false)
}

// Nack отклоняет сообщение.
// requeue=true — вернуть в очередь, false — отправить в DLQ.
func (d *Delivery) Nack(requeue bool) error {
	return d.Raw.Nack(false, requeue)
}

// Исходы обработки одного сообщения (метрика queue_messages_total).
const (
	outcomeAck     = "ack"
	outcomeRequeue = "requeue"
	outcomeDLQ     = "dlq"
	outcomePoison  = "poison"
)

// Consumer потребляет события покупок из очереди RabbitMQ.
//
// Политика доставки заточена под fulfillment:
//   - событие обрабатывается ровно одним потоком (ack вручную);
//   - первая неудача обработчика возвращает событие в очередь —
//     большинство сбоев транзиентны (БД, брокер);
//   - неудача повторной доставки отправляет событие в DLQ: покупка
//     не должна крутиться в очереди бесконечно, её разберут руками;
//   - нечитаемое сообщение уходит в DLQ сразу, redelivery его
//     не исправит.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int

	cancelFunc context.CancelFunc
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// Prefetch — количество сообщений для предварительной загрузки.
	Prefetch int
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start запускает потребление. Блокируется до отмены контекста
// или Stop; разрывы соединения переживает, переоткрывая поток
// доставки после reconnect.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		deliveries, err := c.openStream()
		if err != nil {
			c.logger.Error("failed to open delivery stream", "queue", c.queue, "error", err)
			if err := c.awaitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		c.logger.Info("consumer started", "queue", c.queue)

		if err := c.drain(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("delivery stream closed, waiting for reconnect", "queue", c.queue)
			if err := c.awaitReconnect(ctx); err != nil {
				return err
			}
		}
	}
}

// Stop останавливает consumer.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// openStream выставляет prefetch и открывает поток доставки.
func (c *Consumer) openStream() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("no channel available")
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (мы ack вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// awaitReconnect ждёт переподключения соединения или отмены контекста.
func (c *Consumer) awaitReconnect(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.conn.ReconnectNotify():
		c.logger.Info("reconnected, reopening consumer", "queue", c.queue)
		return nil
	}
}

// drain обрабатывает сообщения до закрытия потока доставки.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("deliveries channel closed")
			}

			outcome := c.handleDelivery(ctx, raw)
			telemetry.QueueMessages.WithLabelValues(c.queue, outcome).Inc()
		}
	}
}

// handleDelivery обрабатывает одно сообщение и возвращает исход.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) string {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("unreadable message, sending to DLQ",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		raw.Nack(false, false)
		return outcomePoison
	}

	delivery := &Delivery{
		Message: msg,
		Raw:     raw,
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", msg.ID,
		"type", msg.Type,
		"redelivered", raw.Redelivered,
	)

	if err := c.handler(ctx, delivery); err != nil {
		if raw.Redelivered {
			// Вторая неудача подряд — событие в DLQ на ручной разбор
			c.logger.Error("handler failed on redelivery, sending to DLQ",
				"queue", c.queue,
				"message_id", msg.ID,
				"type", msg.Type,
				"error", err,
			)
			raw.Nack(false, false)
			return outcomeDLQ
		}

		c.logger.Error("handler failed, requeueing",
			"queue", c.queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		raw.Nack(false, true)
		return outcomeRequeue
	}

	raw.Ack(false)
	return outcomeAck
}

// ParsePayload парсит payload сообщения в указанный тип.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	// Payload может быть уже распарсен как map или быть raw json
	payloadBytes, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}

	if err := json.Unmarshal(payloadBytes, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}

	return result, nil
}
