package engine

import (
	"errors"
	"testing"

	"github.com/shaiso/Machina/internal/domain"
)

// validDefinition возвращает минимальный корректный definition:
// parallel из двух http-задач, затем терминальная email-задача.
func validDefinition() *domain.Definition {
	return &domain.Definition{
		Name: "test-workflow",
		Nodes: []domain.Node{
			{
				ID:   "fanout",
				Type: domain.NodeTypeParallel,
				Parallel: &domain.ParallelSpec{
					Branches: []domain.Branch{
						{
							ID: "license",
							Nodes: []domain.Node{
								{
									ID:   "create-license",
									Type: domain.NodeTypeTask,
									Task: &domain.TaskSpec{
										Kind:      domain.TaskKindHTTP,
										Connector: "licensing",
										Method:    "POST",
										Path:      "/licenses",
										Body: map[string]any{
											"transactionId": "$.data.id",
										},
										OutputPath: "$.body",
										Retry: &domain.RetryPolicy{
											Kinds:       []string{"all"},
											IntervalMs:  1000,
											MaxAttempts: 3,
										},
									},
								},
							},
						},
						{
							ID: "customer",
							Nodes: []domain.Node{
								{
									ID:   "get-customer",
									Type: domain.NodeTypeTask,
									Task: &domain.TaskSpec{
										Kind:       domain.TaskKindHTTP,
										Connector:  "payments",
										Method:     "GET",
										Path:       "/customers/{data.customer_id}",
										OutputPath: "$.body",
									},
								},
							},
						},
					},
					Aggregate: map[string]any{
						"license":  "$[0]",
						"customer": "$[1]",
					},
				},
			},
			{
				ID:       "send-email",
				Type:     domain.NodeTypeTask,
				Terminal: true,
				Task: &domain.TaskSpec{
					Kind: domain.TaskKindEmail,
					Email: &domain.EmailSpec{
						To:      "$.customer.data.email",
						From:    "noreply@example.com",
						Subject: "Your license key",
						Body:    "Hi {customer.data.name}, your key: {license.data.attributes.key}",
					},
				},
			},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(validDefinition()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(def *domain.Definition)
		wantErr error
	}{
		{
			name:    "nil definition",
			mutate:  nil,
			wantErr: ErrEmptyNodes,
		},
		{
			name: "empty node ID",
			mutate: func(def *domain.Definition) {
				def.Nodes[1].ID = ""
			},
			wantErr: ErrEmptyNodeID,
		},
		{
			name: "duplicate node ID across branches",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches[1].Nodes[0].ID = "create-license"
			},
			wantErr: ErrDuplicateNodeID,
		},
		{
			name: "unknown node type",
			mutate: func(def *domain.Definition) {
				def.Nodes[1].Type = "choice"
			},
			wantErr: ErrUnknownNodeType,
		},
		{
			name: "unknown task kind",
			mutate: func(def *domain.Definition) {
				def.Nodes[1].Task.Kind = "grpc"
			},
			wantErr: ErrUnknownTaskKind,
		},
		{
			name: "missing terminal flag",
			mutate: func(def *domain.Definition) {
				def.Nodes[1].Terminal = false
			},
			wantErr: ErrNoTerminalNode,
		},
		{
			name: "terminal not last",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Terminal = true
			},
			wantErr: ErrTerminalNotLast,
		},
		{
			name: "terminal inside branch",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches[0].Nodes[0].Terminal = true
			},
			wantErr: ErrTerminalNotLast,
		},
		{
			name: "no branches",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches = nil
			},
			wantErr: ErrEmptyBranches,
		},
		{
			name: "duplicate branch ID",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches[1].ID = "license"
			},
			wantErr: ErrDuplicateBranchID,
		},
		{
			name: "empty branch",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches[0].Nodes = nil
			},
			wantErr: ErrEmptyBranchNodes,
		},
		{
			name: "aggregate index out of range",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Aggregate["extra"] = "$[2]"
			},
			wantErr: ErrBranchIndex,
		},
		{
			name: "bad path template",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches[1].Nodes[0].Task.Path = "/customers/{data.customer_id"
			},
			wantErr: ErrTemplateSyntax,
		},
		{
			name: "bad output path",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches[0].Nodes[0].Task.OutputPath = "$."
			},
			wantErr: ErrPathSyntax,
		},
		{
			name: "retry without kinds",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches[0].Nodes[0].Task.Retry.Kinds = nil
			},
			wantErr: nil, // любая ошибка валидации
		},
		{
			name: "retry without attempts",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches[0].Nodes[0].Task.Retry.MaxAttempts = 0
			},
			wantErr: nil,
		},
		{
			name: "http task without connector",
			mutate: func(def *domain.Definition) {
				def.Nodes[0].Parallel.Branches[0].Nodes[0].Task.Connector = ""
			},
			wantErr: nil,
		},
		{
			name: "email task without spec",
			mutate: func(def *domain.Definition) {
				def.Nodes[1].Task.Email = nil
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var def *domain.Definition
			if tt.mutate != nil {
				def = validDefinition()
				tt.mutate(def)
			}

			err := Validate(def)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
