package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Machina/internal/domain"
	"github.com/shaiso/Machina/internal/engine"
	"github.com/shaiso/Machina/internal/telemetry"
)

// Backoff по умолчанию и его потолок.
const (
	defaultRetryInterval = time.Second
	maxBackoffDelay      = 30 * time.Second
)

// StepResult — результат успешного выполнения задачи.
type StepResult struct {
	// Output — новый контекст выполнения.
	Output map[string]any

	// Attempts — количество выполненных попыток вызова.
	Attempts int
}

// StepExecutor выполняет одну задачу против текущего контекста.
//
// Ход выполнения:
//  1. Invoker строит запрос из контекста и делает ровно один внешний
//     вызов на попытку (семантика at-least-once: каждая повторная
//     попытка — новый вызов).
//  2. Ошибка вызова сверяется с retry-политикой задачи: вид ошибки
//     входит в Kinds и попытки остались — ожидание backoff и повтор.
//  3. Успешный ответ проходит result selector, затем output path;
//     результат становится контекстом следующего узла.
//
// Контекст не мутируется частично: вызывающая сторона получает либо
// полный новый контекст, либо ошибку и свой прежний контекст.
type StepExecutor struct {
	invokers *Registry
	logger   *slog.Logger
}

// NewStepExecutor создаёт StepExecutor.
func NewStepExecutor(invokers *Registry, logger *slog.Logger) *StepExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StepExecutor{
		invokers: invokers,
		logger:   logger,
	}
}

// Run выполняет задачу узла и возвращает новый контекст.
//
// Ошибки построения запроса (ErrMissingField, ErrUnknownConnector)
// возвращаются сразу, без единого внешнего вызова и без retry.
// Исчерпанные retry возвращаются как *StepError.
func (e *StepExecutor) Run(ctx context.Context, node *domain.Node, doc map[string]any) (*StepResult, error) {
	task := node.Task
	logger := telemetry.WithNodeID(e.logger, node.ID)

	invoker, err := e.invokers.Get(task.Kind)
	if err != nil {
		return nil, err
	}

	attempts := 0
	for {
		attempts++
		telemetry.NodeAttempts.WithLabelValues(node.ID, task.Kind).Inc()

		started := time.Now()
		outputs, err := invoker.Invoke(ctx, node, doc)
		telemetry.CallDuration.WithLabelValues(node.ID).Observe(time.Since(started).Seconds())

		if err == nil {
			output, err := e.project(task, outputs)
			if err != nil {
				return nil, err
			}

			logger.Info("node succeeded",
				"kind", task.Kind,
				"attempt", attempts,
			)
			return &StepResult{Output: output, Attempts: attempts}, nil
		}

		// Не ошибка вызова — ошибка данных или конфигурации, без retry
		var callErr *CallError
		if !errors.As(err, &callErr) {
			logger.Warn("node request build failed", "error", err)
			return nil, err
		}

		policy := task.Retry
		if policy == nil || attempts >= policy.MaxAttempts || !policy.Matches(callErr.Kind) {
			logger.Warn("node failed",
				"kind", task.Kind,
				"error_kind", callErr.Kind,
				"retryable", callErr.Retryable,
				"attempt", attempts,
				"error", err,
			)
			return nil, &StepError{Node: node.ID, Kind: callErr.Kind, Attempts: attempts, Err: err}
		}

		delay := backoffDelay(policy, attempts)
		logger.Debug("retrying node",
			"attempt", attempts,
			"delay", delay,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// project применяет result selector и output path к сырому результату.
func (e *StepExecutor) project(task *domain.TaskSpec, outputs map[string]any) (map[string]any, error) {
	result := outputs

	if task.ResultSelector != nil {
		projected, err := engine.Project(result, task.ResultSelector)
		if err != nil {
			return nil, err
		}
		result = projected
	}

	if task.OutputPath != "" {
		extracted, err := engine.Extract(result, task.OutputPath)
		if err != nil {
			return nil, err
		}
		output, ok := extracted.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrBadOutput, task.OutputPath)
		}
		return output, nil
	}

	return result, nil
}

// backoffDelay вычисляет задержку перед попыткой attempt+1.
//
// Multiplier <= 1 — фиксированная задержка IntervalMs.
// Multiplier > 1 — delay = interval * multiplier^(attempt-1),
// с потолком maxBackoffDelay.
func backoffDelay(policy *domain.RetryPolicy, attempt int) time.Duration {
	interval := time.Duration(policy.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = defaultRetryInterval
	}

	if policy.Multiplier <= 1 {
		return interval
	}

	delay := float64(interval)
	for i := 1; i < attempt; i++ {
		delay *= policy.Multiplier
		if time.Duration(delay) > maxBackoffDelay {
			return maxBackoffDelay
		}
	}

	return time.Duration(delay)
}
