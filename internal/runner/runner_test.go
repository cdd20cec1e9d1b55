package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shaiso/Machina/internal/domain"
)

// nodeInvoker диспетчеризует вызовы по ID узла.
type nodeInvoker struct {
	handlers map[string]func(ctx context.Context, doc map[string]any) (map[string]any, error)
}

func (n *nodeInvoker) Invoke(ctx context.Context, node *domain.Node, doc map[string]any) (map[string]any, error) {
	handler, ok := n.handlers[node.ID]
	if !ok {
		return nil, errors.New("no handler for node " + node.ID)
	}
	return handler(ctx, doc)
}

func newTestRunner(handlers map[string]func(ctx context.Context, doc map[string]any) (map[string]any, error)) *Runner {
	registry := &Registry{invokers: map[string]Invoker{
		domain.TaskKindHTTP: &nodeInvoker{handlers: handlers},
	}}
	return New(Config{
		Invokers: registry,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestRunner_SequentialChain(t *testing.T) {
	def := &domain.Definition{
		Name: "chain",
		Nodes: []domain.Node{
			{ID: "first", Type: domain.NodeTypeTask, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
			{ID: "second", Type: domain.NodeTypeTask, Terminal: true, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
		},
	}

	r := newTestRunner(map[string]func(ctx context.Context, doc map[string]any) (map[string]any, error){
		"first": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			return map[string]any{"step": "first", "seed": doc["seed"]}, nil
		},
		"second": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			// Контекст второго узла — выход первого.
			return map[string]any{"saw": doc["step"], "seed": doc["seed"]}, nil
		},
	})

	out, err := r.Execute(context.Background(), def, map[string]any{"seed": "s1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out["saw"] != "first" {
		t.Errorf("second node should see first node output, got %v", out)
	}
	if out["seed"] != "s1" {
		t.Errorf("trigger data should flow through the chain, got %v", out)
	}
}

func TestRunner_ParallelPositionalAggregation(t *testing.T) {
	def := &domain.Definition{
		Name: "fanout",
		Nodes: []domain.Node{
			{
				ID:   "par",
				Type: domain.NodeTypeParallel,
				Parallel: &domain.ParallelSpec{
					Branches: []domain.Branch{
						{ID: "slow", Nodes: []domain.Node{
							{ID: "slow-task", Type: domain.NodeTypeTask, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
						}},
						{ID: "fast", Nodes: []domain.Node{
							{ID: "fast-task", Type: domain.NodeTypeTask, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
						}},
					},
					Aggregate: map[string]any{
						"license":  "$[0]",
						"customer": "$[1]",
					},
				},
			},
			{ID: "after", Type: domain.NodeTypeTask, Terminal: true, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
		},
	}

	r := newTestRunner(map[string]func(ctx context.Context, doc map[string]any) (map[string]any, error){
		"slow-task": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			time.Sleep(30 * time.Millisecond)
			return map[string]any{"from": "slow"}, nil
		},
		"fast-task": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			return map[string]any{"from": "fast"}, nil
		},
		"after": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			return doc, nil
		},
	})

	out, err := r.Execute(context.Background(), def, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Ветка 0 завершилась последней, но "$[0]" адресует именно её.
	license, ok := out["license"].(map[string]any)
	if !ok || license["from"] != "slow" {
		t.Errorf("aggregation must be positional, not completion-ordered: %v", out)
	}
	customer, ok := out["customer"].(map[string]any)
	if !ok || customer["from"] != "fast" {
		t.Errorf("branch 1 output should land under customer: %v", out)
	}
}

func TestRunner_ParallelBranchesIsolated(t *testing.T) {
	def := &domain.Definition{
		Name: "isolation",
		Nodes: []domain.Node{
			{
				ID:       "par",
				Type:     domain.NodeTypeParallel,
				Terminal: true,
				Parallel: &domain.ParallelSpec{
					Branches: []domain.Branch{
						{ID: "a", Nodes: []domain.Node{
							{ID: "mutator", Type: domain.NodeTypeTask, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
						}},
						{ID: "b", Nodes: []domain.Node{
							{ID: "reader", Type: domain.NodeTypeTask, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
						}},
					},
					Aggregate: map[string]any{"reader": "$[1]"},
				},
			},
		},
	}

	r := newTestRunner(map[string]func(ctx context.Context, doc map[string]any) (map[string]any, error){
		"mutator": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			// Мутация копии не должна быть видна соседней ветке.
			data := doc["data"].(map[string]any)
			data["id"] = "mutated"
			return doc, nil
		},
		"reader": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			time.Sleep(20 * time.Millisecond)
			data := doc["data"].(map[string]any)
			return map[string]any{"seen": data["id"]}, nil
		},
	})

	trigger := map[string]any{"data": map[string]any{"id": "original"}}
	out, err := r.Execute(context.Background(), def, trigger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reader := out["reader"].(map[string]any)
	if reader["seen"] != "original" {
		t.Errorf("branches must receive independent copies, reader saw %v", reader["seen"])
	}
	if trigger["data"].(map[string]any)["id"] != "original" {
		t.Error("trigger document must not be mutated by branches")
	}
}

func TestRunner_ParallelFailFast(t *testing.T) {
	def := &domain.Definition{
		Name: "failfast",
		Nodes: []domain.Node{
			{
				ID:       "par",
				Type:     domain.NodeTypeParallel,
				Terminal: true,
				Parallel: &domain.ParallelSpec{
					Branches: []domain.Branch{
						{ID: "hang", Nodes: []domain.Node{
							{ID: "hang-task", Type: domain.NodeTypeTask, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
						}},
						{ID: "boom", Nodes: []domain.Node{
							{ID: "boom-task", Type: domain.NodeTypeTask, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
						}},
					},
					Aggregate: map[string]any{"a": "$[0]", "b": "$[1]"},
				},
			},
		},
	}

	r := newTestRunner(map[string]func(ctx context.Context, doc map[string]any) (map[string]any, error){
		"hang-task": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			select {
			case <-time.After(5 * time.Second):
				return map[string]any{}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
		"boom-task": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			return nil, &CallError{Kind: KindHTTPClient, Retryable: false, Err: errors.New("HTTP 400")}
		},
	})

	started := time.Now()
	_, err := r.Execute(context.Background(), def, map[string]any{})
	elapsed := time.Since(started)

	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed > time.Second {
		t.Errorf("failure should cancel sibling branches promptly, took %v", elapsed)
	}

	if !errors.Is(err, ErrWorkflowFailed) {
		t.Errorf("expected ErrWorkflowFailed, got %v", err)
	}
	if !errors.Is(err, ErrBranchFailed) {
		t.Errorf("expected ErrBranchFailed, got %v", err)
	}

	var branchErr *BranchError
	if !errors.As(err, &branchErr) {
		t.Fatalf("expected BranchError, got %T", err)
	}
	// Отменённая соседняя ветка не должна маскировать причину.
	if branchErr.Branch != 1 || branchErr.BranchID != "boom" {
		t.Errorf("expected failing branch 1 (boom), got %d (%s)", branchErr.Branch, branchErr.BranchID)
	}
}

func TestRunner_FailureCarriesNodeIdentity(t *testing.T) {
	def := &domain.Definition{
		Name: "licensing",
		Nodes: []domain.Node{
			{ID: "create-license", Type: domain.NodeTypeTask, Terminal: true, Task: &domain.TaskSpec{
				Kind:      "http",
				Connector: "c",
				Retry: &domain.RetryPolicy{
					Kinds:       []string{"all"},
					IntervalMs:  1,
					MaxAttempts: 2,
				},
			}},
		},
	}

	r := newTestRunner(map[string]func(ctx context.Context, doc map[string]any) (map[string]any, error){
		"create-license": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			return nil, &CallError{Kind: KindHTTPServer, Retryable: true, Err: errors.New("HTTP 500")}
		},
	})

	_, err := r.Execute(context.Background(), def, map[string]any{})
	if err == nil {
		t.Fatal("expected error")
	}

	var werr *WorkflowError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WorkflowError, got %T", err)
	}
	if werr.Workflow != "licensing" {
		t.Errorf("expected workflow name, got %q", werr.Workflow)
	}
	if werr.Node != "create-license" {
		t.Errorf("expected failed node identity, got %q", werr.Node)
	}
	if werr.Attempts != 2 {
		t.Errorf("expected 2 attempts recorded, got %d", werr.Attempts)
	}
	if !errors.Is(err, ErrStepFailed) {
		t.Errorf("step failure should remain visible through the chain, got %v", err)
	}
}

func TestRunner_CancelledContext(t *testing.T) {
	def := &domain.Definition{
		Name: "cancelled",
		Nodes: []domain.Node{
			{ID: "only", Type: domain.NodeTypeTask, Terminal: true, Task: &domain.TaskSpec{Kind: "http", Connector: "c"}},
		},
	}

	r := newTestRunner(map[string]func(ctx context.Context, doc map[string]any) (map[string]any, error){
		"only": func(ctx context.Context, doc map[string]any) (map[string]any, error) {
			t.Error("node must not run after cancellation")
			return nil, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Execute(ctx, def, map[string]any{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
