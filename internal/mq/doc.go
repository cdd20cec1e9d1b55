// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//     (первый сбой — requeue, повторный сбой и нечитаемые
//     сообщения — в DLQ)
//
// Типы сообщений:
//   - purchase.received — событие покупки, запускающее fulfillment
//   - run.completed     — run завершился (успех или ошибка)
//
// Exchanges:
//   - machina.purchases — входящие события покупок
//   - machina.runs      — события завершения runs
//   - machina.dlq       — dead letter queue
package mq
