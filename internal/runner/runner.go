package runner

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/shaiso/Machina/internal/domain"
	"github.com/shaiso/Machina/internal/engine"
	"github.com/shaiso/Machina/internal/telemetry"
)

// Runner выполняет workflow от триггера до терминального узла.
//
// Runner — интерпретатор фиксированного графа: идёт по цепочке узлов,
// для task вызывает StepExecutor, для parallel разворачивает ветки
// в горутины и собирает их выходы позиционным селектором агрегации.
// Один вызов Execute — одно логическое выполнение; контекст выполнения
// принадлежит ему и не разделяется между выполнениями.
type Runner struct {
	exec   *StepExecutor
	logger *slog.Logger
}

// Config — конфигурация Runner.
type Config struct {
	// Invokers — реестр invoker'ов по виду задачи.
	Invokers *Registry

	// Logger — логгер. Nil — slog.Default().
	Logger *slog.Logger
}

// New создаёт новый Runner.
func New(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		exec:   NewStepExecutor(cfg.Invokers, logger),
		logger: logger,
	}
}

// Execute выполняет definition от входного документа до терминального
// результата.
//
// Любая невосстановимая ошибка узла прерывает выполнение целиком:
// обходных маршрутов в графе нет. Вызывающая сторона получает
// *WorkflowError с идентичностью упавшего узла, видом ошибки и
// количеством попыток; частичный контекст наружу не отдаётся.
func (r *Runner) Execute(ctx context.Context, def *domain.Definition, trigger map[string]any) (map[string]any, error) {
	logger := telemetry.WithWorkflow(r.logger, def.Name)
	logger.Info("workflow started", "nodes", len(def.Nodes))

	out, err := r.runChain(ctx, def.Nodes, trigger)
	if err != nil {
		werr := newWorkflowError(def.Name, err)
		logger.Error("workflow failed",
			"node_id", werr.Node,
			"error", err,
		)
		return nil, werr
	}

	logger.Info("workflow succeeded")
	return out, nil
}

// runChain выполняет цепочку узлов последовательно, протягивая
// контекст от узла к узлу.
func (r *Runner) runChain(ctx context.Context, nodes []domain.Node, doc map[string]any) (map[string]any, error) {
	for i := range nodes {
		node := &nodes[i]

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		var err error
		switch node.Type {
		case domain.NodeTypeTask:
			var res *StepResult
			res, err = r.exec.Run(ctx, node, doc)
			if err == nil {
				doc = res.Output
			}

		case domain.NodeTypeParallel:
			doc, err = r.runParallel(ctx, node, doc)
		}

		if err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// runParallel выполняет ветки parallel узла одновременно.
//
// Каждая ветка получает собственную копию контекста (copy-on-fanout).
// Первая невосстановимая ошибка отменяет контекст соседних веток
// (best-effort) и проваливает узел без агрегации. При успехе всех
// веток выходы собираются селектором агрегации строго позиционно:
// выход ветки i адресуется как "$[i]" независимо от порядка завершения.
func (r *Runner) runParallel(ctx context.Context, node *domain.Node, doc map[string]any) (map[string]any, error) {
	par := node.Parallel

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.logger.Info("parallel started",
		"node_id", node.ID,
		"branches", len(par.Branches),
	)

	results := make([]any, len(par.Branches))
	errCh := make(chan *BranchError, len(par.Branches))

	var wg sync.WaitGroup
	for i := range par.Branches {
		branch := &par.Branches[i]

		wg.Add(1)
		go func(idx int, b *domain.Branch) {
			defer wg.Done()

			out, err := r.runChain(ctx, b.Nodes, engine.Clone(doc))
			if err != nil {
				errCh <- &BranchError{Branch: idx, BranchID: b.ID, Err: err}
				cancel()
				return
			}
			results[idx] = out
		}(i, branch)
	}

	wg.Wait()
	close(errCh)

	if branchErr := firstBranchError(errCh); branchErr != nil {
		r.logger.Warn("parallel failed",
			"node_id", node.ID,
			"branch", branchErr.Branch,
			"branch_id", branchErr.BranchID,
			"error", branchErr.Err,
		)
		return nil, branchErr
	}

	merged, err := engine.Project(results, par.Aggregate)
	if err != nil {
		return nil, err
	}

	r.logger.Info("parallel succeeded", "node_id", node.ID)
	return merged, nil
}

// firstBranchError выбирает причину падения parallel узла.
// Ошибки отменённых соседних веток (context.Canceled) маскируют
// исходную ошибку, поэтому предпочитается первая не-отменённая.
func firstBranchError(errCh <-chan *BranchError) *BranchError {
	var first *BranchError
	for branchErr := range errCh {
		if first == nil {
			first = branchErr
		}
		if !errors.Is(branchErr.Err, context.Canceled) {
			return branchErr
		}
	}
	return first
}
