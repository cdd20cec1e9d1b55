package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shaiso/Machina/internal/domain"
	"github.com/shaiso/Machina/internal/engine"
	"github.com/shaiso/Machina/internal/mq"
	"github.com/shaiso/Machina/internal/runner"
	"github.com/shaiso/Machina/internal/telemetry"
)

const defaultPrefetch = 5

// RunStore записывает жизненный цикл run.
// Реализация: repo.RunRepo.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
}

// CompletionPublisher публикует событие о завершённом run.
// Реализация: mq.Publisher.
type CompletionPublisher interface {
	PublishRunCompleted(ctx context.Context, payload mq.RunCompletedPayload) error
}

// Service выполняет fulfillment покупок.
//
// Service — связующий компонент системы, который:
//   - Получает события покупок из очереди purchases.incoming
//   - Создаёт Run и выполняет purchase-handler workflow
//   - Записывает итог в хранилище runs
//   - Публикует событие run.completed
//
// Падение workflow — финальный итог run, а не ошибка обработки
// сообщения: событие покупки подтверждается, run остаётся FAILED.
type Service struct {
	def    *domain.Definition
	runner *runner.Runner

	// Опциональные зависимости: nil отключает соответствующий шаг.
	runs      RunStore
	publisher CompletionPublisher

	conn     *mq.Connection
	consumer *mq.Consumer

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// ServiceConfig — конфигурация Service.
type ServiceConfig struct {
	// Definition — определение workflow.
	Definition *domain.Definition

	// Runner — исполнитель workflow.
	Runner *runner.Runner

	// Runs — хранилище runs (опционально).
	Runs RunStore

	// Publisher — издатель событий run.completed (опционально).
	Publisher CompletionPublisher

	// Conn — соединение с RabbitMQ (для Start; опционально).
	Conn *mq.Connection

	// Logger — логгер. Nil — slog.Default().
	Logger *slog.Logger
}

// NewService создаёт Service.
// Definition валидируется при создании: сервис с некорректным
// определением не стартует.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := engine.Validate(cfg.Definition); err != nil {
		return nil, fmt.Errorf("validate definition: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		def:       cfg.Definition,
		runner:    cfg.Runner,
		runs:      cfg.Runs,
		publisher: cfg.Publisher,
		conn:      cfg.Conn,
		logger:    logger,
	}, nil
}

// Start запускает потребление событий покупок.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.consumer = mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueuePurchasesIncoming),
		Handler:  s.handlePurchase,
		Prefetch: defaultPrefetch,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("purchase consumer error", "error", err)
		}
	}()

	s.logger.Info("fulfillment service started", "workflow", s.def.Name)
	return nil
}

// Stop останавливает Service.
func (s *Service) Stop() {
	s.logger.Info("stopping fulfillment service...")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.consumer != nil {
		s.consumer.Stop()
	}

	s.wg.Wait()
	s.logger.Info("fulfillment service stopped")
}

// handlePurchase обрабатывает событие покупки из очереди.
func (s *Service) handlePurchase(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.PurchaseReceivedPayload](&delivery.Message)
	if err != nil {
		// Некорректный payload не станет корректным при redelivery
		s.logger.Error("failed to parse purchase payload",
			"message_id", delivery.Message.ID,
			"error", err,
		)
		return nil
	}

	run, err := s.Fulfill(ctx, payload.Event)
	if err != nil && run == nil {
		// Run не создан — инфраструктурная ошибка, сообщение вернётся в очередь
		return err
	}

	return nil
}

// Fulfill выполняет purchase-handler workflow для одного события покупки.
//
// Возвращает run с финальным статусом. Ошибка workflow записывается
// в run (FAILED + упавший узел) и возвращается вызывающей стороне;
// run == nil только при инфраструктурной ошибке до начала выполнения.
func (s *Service) Fulfill(ctx context.Context, event map[string]any) (*domain.Run, error) {
	run := domain.NewRun(s.def.Name, event)
	logger := telemetry.WithRunID(s.logger, run.ID.String())

	if s.runs != nil {
		if err := s.runs.Create(ctx, run); err != nil {
			s.logger.Error("failed to create run record", "error", err)
			return nil, fmt.Errorf("create run: %w", err)
		}
	}

	run.MarkRunning()
	s.updateRun(ctx, logger, run)

	logger.Info("fulfillment started", "workflow", run.Workflow)

	_, execErr := s.runner.Execute(ctx, s.def, engine.Clone(event))
	if execErr != nil {
		var werr *runner.WorkflowError
		if errors.As(execErr, &werr) {
			run.MarkFailed(werr.Node, execErr.Error())
		} else {
			run.MarkFailed("", execErr.Error())
		}
	} else {
		run.MarkSucceeded()
	}

	telemetry.RunsTotal.WithLabelValues(run.Workflow, string(run.Status)).Inc()

	s.updateRun(ctx, logger, run)
	s.publishCompleted(ctx, logger, run)

	if execErr != nil {
		logger.Error("fulfillment failed",
			"workflow", run.Workflow,
			"node_id", run.FailedNode,
			"error", execErr,
		)
		return run, execErr
	}

	logger.Info("fulfillment succeeded",
		"workflow", run.Workflow,
		"duration", run.Duration(),
	)
	return run, nil
}

// updateRun записывает текущее состояние run (best-effort).
func (s *Service) updateRun(ctx context.Context, logger *slog.Logger, run *domain.Run) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Update(ctx, run); err != nil {
		logger.Error("failed to update run record", "status", run.Status, "error", err)
	}
}

// publishCompleted публикует run.completed (best-effort).
func (s *Service) publishCompleted(ctx context.Context, logger *slog.Logger, run *domain.Run) {
	if s.publisher == nil {
		return
	}

	payload := mq.RunCompletedPayload{
		RunID:      run.ID,
		Workflow:   run.Workflow,
		Status:     string(run.Status),
		Error:      run.Error,
		FailedNode: run.FailedNode,
	}
	if err := s.publisher.PublishRunCompleted(ctx, payload); err != nil {
		logger.Error("failed to publish run.completed", "error", err)
	}
}
