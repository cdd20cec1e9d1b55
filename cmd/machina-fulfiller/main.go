// Machina Fulfiller — выполняет fulfillment покупок.
//
// Fulfiller:
//   - Получает события покупок из RabbitMQ
//   - Выполняет purchase-handler workflow (лицензия + покупатель + письмо)
//   - Записывает runs в PostgreSQL
//   - Публикует события run.completed
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Machina/internal/connector"
	"github.com/shaiso/Machina/internal/fulfillment"
	"github.com/shaiso/Machina/internal/mail"
	"github.com/shaiso/Machina/internal/mq"
	"github.com/shaiso/Machina/internal/repo"
	"github.com/shaiso/Machina/internal/runner"
	"github.com/shaiso/Machina/internal/telemetry"
)

func main() {
	// .env для локальной разработки; в проде переменные заданы окружением
	_ = godotenv.Load()

	logger := telemetry.SetupLogger()
	logger.Info("starting machina-fulfiller")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := fulfillment.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	connectors, err := cfg.Connectors()
	if err != nil {
		logger.Error("failed to build connectors", "error", err)
		os.Exit(1)
	}
	logger.Info("connectors registered", "connectors", connectors.Names())

	// DB pool (опционально: без БД runs не журналируются)
	var runs fulfillment.RunStore
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Warn("database not available, runs will not be recorded", "error", err)
	} else {
		defer pool.Close()
		logger.Info("database connected")
		runs = repo.NewRunRepo(pool)
	}

	// RabbitMQ
	mqURL := os.Getenv("RABBITMQ_URL")
	if mqURL == "" {
		mqURL = mq.DefaultURL()
	}

	mqConn, err := mq.NewConnection(mqURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer mqConn.Close()
	logger.Info("RabbitMQ connected")

	if err := mq.SetupTopology(ctx, mqConn); err != nil {
		logger.Warn("failed to setup topology", "error", err)
	}

	publisher := mq.NewPublisher(mqConn, logger)

	// Runner с invoker'ами http и email
	creds := connector.EnvCredentials{}
	mailer := mail.NewAPIMailer(cfg.EmailConnector(), creds)

	r := runner.New(runner.Config{
		Invokers: runner.NewRegistry(connectors, creds, mailer),
		Logger:   logger,
	})

	svc, err := fulfillment.NewService(fulfillment.ServiceConfig{
		Definition: fulfillment.Definition(cfg),
		Runner:     r,
		Runs:       runs,
		Publisher:  publisher,
		Conn:       mqConn,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to create fulfillment service", "error", err)
		os.Exit(1)
	}

	if err := svc.Start(ctx); err != nil {
		logger.Error("failed to start fulfillment service", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8080"
	if v := os.Getenv("FULFILLER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	svc.Stop()
	logger.Info("machina-fulfiller stopped")
}
