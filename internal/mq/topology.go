package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangePurchases Exchange = "machina.purchases"
	ExchangeRuns      Exchange = "machina.runs"
	ExchangeDLQ       Exchange = "machina.dlq"
)

// Queues — имена очередей.
const (
	QueuePurchasesIncoming Queue = "purchases.incoming"
	QueueRunsCompleted     Queue = "runs.completed"
	QueueDLQPurchases      Queue = "dlq.purchases"
)

// Routing keys.
const (
	RoutingKeyPurchase     RoutingKey = "purchase"
	RoutingKeyCompleted    RoutingKey = "completed"
	RoutingKeyDLQPurchases RoutingKey = "purchases"
)

func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}

		if err := declareQueues(ch); err != nil {
			return err
		}

		if err := bindQueues(ch); err != nil {
			return err
		}

		return nil
	})
}

// declareExchanges создаёт обменники.
func declareExchanges(ch *amqp.Channel) error {
	exchanges := []struct {
		name Exchange
		kind string
	}{
		{ExchangePurchases, "direct"},
		{ExchangeRuns, "direct"},
		{ExchangeDLQ, "direct"},
	}

	for _, ex := range exchanges {
		err := ch.ExchangeDeclare(
			string(ex.name), // name
			ex.kind,         // type
			true,            // durable
			false,           // auto-deleted
			false,           // internal
			false,           // no-wait
			nil,             // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex.name, err)
		}
	}

	return nil
}

// declareQueues создаёт очереди.
func declareQueues(ch *amqp.Channel) error {
	// Необработанные события покупок уходят в DLQ, а не теряются
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQPurchases),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueuePurchasesIncoming, dlqArgs},

		// runs.completed — события завершения, без DLQ
		{QueueRunsCompleted, nil},

		// dlq.purchases — сама DLQ очередь
		{QueueDLQPurchases, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}

	return nil
}

// bindQueues привязывает очереди к обменникам.
func bindQueues(ch *amqp.Channel) error {
	bindings := []struct {
		queue      Queue
		routingKey RoutingKey
		exchange   Exchange
	}{
		{QueuePurchasesIncoming, RoutingKeyPurchase, ExchangePurchases},
		{QueueRunsCompleted, RoutingKeyCompleted, ExchangeRuns},
		{QueueDLQPurchases, RoutingKeyDLQPurchases, ExchangeDLQ},
	}

	for _, b := range bindings {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}

	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Machina RabbitMQ Topology:

    machina.purchases (direct)
    └── purchases.incoming [routing: purchase]
            Consumer: Fulfiller
            DLQ: dlq.purchases

    machina.runs (direct)
    └── runs.completed [routing: completed]
            Consumer: downstream systems

    machina.dlq (direct)
    └── dlq.purchases [routing: purchases]
            Manual processing
  `
}
