package fulfillment

import (
	"github.com/shaiso/Machina/internal/domain"
)

// WorkflowName — имя fulfillment workflow.
const WorkflowName = "purchase-handler"

// ID узлов workflow.
const (
	NodeFulfill       = "fulfill"
	NodeCreateLicense = "create-license"
	NodeGetCustomer   = "get-customer"
	NodeSendEmail     = "send-email"
)

// Definition строит определение purchase-handler workflow.
//
// Граф фиксирован:
//
//	fulfill (parallel)
//	├── create-license  POST /licenses       (retry all / 1s / 3)
//	└── get-customer    GET  /customers/{id} (без retry)
//	send-email (terminal)
//
// Триггер — событие покупки платёжной системы:
// {"data": {"id": "...", "customer_id": "..."}}.
func Definition(cfg Config) *domain.Definition {
	return &domain.Definition{
		Name: WorkflowName,
		Nodes: []domain.Node{
			{
				ID:   NodeFulfill,
				Type: domain.NodeTypeParallel,
				Parallel: &domain.ParallelSpec{
					Branches: []domain.Branch{
						{
							ID: "licensing",
							Nodes: []domain.Node{
								{
									ID:   NodeCreateLicense,
									Type: domain.NodeTypeTask,
									Task: &domain.TaskSpec{
										Kind:      domain.TaskKindHTTP,
										Connector: ConnectorLicensing,
										Method:    "POST",
										Path:      "/licenses",
										Body: map[string]any{
											"data": map[string]any{
												"type": "licenses",
												"attributes": map[string]any{
													"metadata": map[string]any{
														"transactionId": "$.data.id",
														"customerId":    "$.data.customer_id",
													},
												},
												"relationships": map[string]any{
													"policy": map[string]any{
														"data": map[string]any{
															"type": "policies",
															"id":   cfg.LicensingPolicyID,
														},
													},
												},
											},
										},
										Retry: &domain.RetryPolicy{
											Kinds:       []string{"all"},
											IntervalMs:  1000,
											MaxAttempts: 3,
										},
										OutputPath: "$.body",
									},
								},
							},
						},
						{
							ID: "customer-lookup",
							Nodes: []domain.Node{
								{
									ID:   NodeGetCustomer,
									Type: domain.NodeTypeTask,
									Task: &domain.TaskSpec{
										Kind:       domain.TaskKindHTTP,
										Connector:  ConnectorPayments,
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
				ID:       NodeSendEmail,
				Type:     domain.NodeTypeTask,
				Terminal: true,
				Task: &domain.TaskSpec{
					Kind: domain.TaskKindEmail,
					Email: &domain.EmailSpec{
						To:      "$.customer.data.email",
						From:    cfg.FromAddress,
						Subject: "Your license key",
						Body:    "Hi {customer.data.name}, \n\nYour license key is: {license.data.attributes.key}",
					},
				},
			},
		},
	}
}
