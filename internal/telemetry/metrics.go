package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики выполнения workflow и очередей.
//
// Экспортируются на /metrics endpoint сервиса (promhttp).
var (
	// RunsTotal — количество запусков workflow по итоговому статусу.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "machina",
		Name:      "runs_total",
		Help:      "Workflow runs by terminal status.",
	}, []string{"workflow", "status"})

	// NodeAttempts — количество попыток внешних вызовов по узлам.
	// Каждый retry — отдельная попытка.
	NodeAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "machina",
		Name:      "node_attempts_total",
		Help:      "External call attempts by node, including retries.",
	}, []string{"node", "kind"})

	// CallDuration — длительность попыток внешних вызовов.
	CallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "machina",
		Name:      "call_duration_seconds",
		Help:      "Duration of external call attempts.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"node"})

	// QueueMessages — исходы обработки сообщений из очередей:
	// ack, requeue, dlq, poison.
	QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "machina",
		Name:      "queue_messages_total",
		Help:      "Consumed queue messages by outcome.",
	}, []string{"queue", "outcome"})

	// MQReconnects — количество переподключений к брокеру.
	MQReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "machina",
		Name:      "mq_reconnects_total",
		Help:      "Successful reconnects to the message broker.",
	})
)
