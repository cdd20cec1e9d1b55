package engine

import (
	"fmt"

	"github.com/shaiso/Machina/internal/domain"
)

// Допустимые типы узлов.
var validNodeTypes = map[string]bool{
	domain.NodeTypeTask:     true,
	domain.NodeTypeParallel: true,
}

// Допустимые виды задач.
var validTaskKinds = map[string]bool{
	domain.TaskKindHTTP:  true,
	domain.TaskKindEmail: true,
}

// Validate выполняет полную валидацию definition.
//
// Проверяет:
//   - наличие узлов и уникальность их ID (включая вложенные в ветки);
//   - корректность типов узлов и видов задач;
//   - терминальность: последний узел цепочки терминален, остальные нет;
//   - синтаксис всех path-выражений, шаблонов и селекторов;
//   - валидность retry-политик;
//   - валидность parallel веток и позиционных ссылок агрегации.
//
// Все ошибки формата выявляются здесь, до начала выполнения.
func Validate(def *domain.Definition) error {
	if def == nil || len(def.Nodes) == 0 {
		return ErrEmptyNodes
	}

	nodeIDs := make(map[string]bool)

	if err := validateChain(def.Nodes, nodeIDs, true); err != nil {
		return err
	}

	return nil
}

// validateChain валидирует цепочку узлов.
// terminal=true — цепочка верхнего уровня, должна заканчиваться
// терминальным узлом. Ветки parallel терминальных узлов не содержат.
func validateChain(nodes []domain.Node, nodeIDs map[string]bool, terminal bool) error {
	if len(nodes) == 0 {
		return ErrEmptyNodes
	}

	for i := range nodes {
		node := &nodes[i]
		last := i == len(nodes)-1

		if err := validateNode(node, nodeIDs); err != nil {
			return err
		}

		switch {
		case terminal && last && !node.Terminal:
			return NewValidationError(node.ID, "terminal",
				"last node of the chain must be terminal", ErrNoTerminalNode)
		case node.Terminal && !(terminal && last):
			return NewValidationError(node.ID, "terminal",
				"terminal flag is only allowed on the last node of the chain", ErrTerminalNotLast)
		}
	}

	return nil
}

// validateNode валидирует один узел.
// nodeIDs — уже встреченные ID узлов (для проверки уникальности).
func validateNode(node *domain.Node, nodeIDs map[string]bool) error {
	if node.ID == "" {
		return NewValidationError("", "id", "node has empty ID", ErrEmptyNodeID)
	}

	if nodeIDs[node.ID] {
		return NewValidationError(node.ID, "id",
			fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
	}
	nodeIDs[node.ID] = true

	switch node.Type {
	case domain.NodeTypeTask:
		if node.Task == nil {
			return NewValidationError(node.ID, "task",
				"task node has no task spec", ErrUnknownNodeType)
		}
		return validateTask(node.ID, node.Task)

	case domain.NodeTypeParallel:
		if node.Parallel == nil {
			return NewValidationError(node.ID, "parallel",
				"parallel node has no parallel spec", ErrUnknownNodeType)
		}
		return validateParallel(node.ID, node.Parallel, nodeIDs)

	default:
		return NewValidationError(node.ID, "type",
			fmt.Sprintf("unknown node type: %q", node.Type), ErrUnknownNodeType)
	}
}

// validateTask валидирует спецификацию задачи.
func validateTask(nodeID string, task *domain.TaskSpec) error {
	if !validTaskKinds[task.Kind] {
		return NewValidationError(nodeID, "kind",
			fmt.Sprintf("unknown task kind: %q", task.Kind), ErrUnknownTaskKind)
	}

	switch task.Kind {
	case domain.TaskKindHTTP:
		if task.Connector == "" {
			return NewValidationError(nodeID, "connector",
				"http task requires a connector", ErrUnknownTaskKind)
		}
		if task.Path != "" {
			if _, err := ParseTemplate(task.Path); err != nil {
				return NewValidationError(nodeID, "path", err.Error(), err)
			}
		}
		for key, tmpl := range task.Headers {
			if _, err := ParseTemplate(tmpl); err != nil {
				return NewValidationError(nodeID, "headers."+key, err.Error(), err)
			}
		}
		if task.Body != nil {
			if err := validateSelector(task.Body, 0); err != nil {
				return NewValidationError(nodeID, "body", err.Error(), err)
			}
		}

	case domain.TaskKindEmail:
		if task.Email == nil {
			return NewValidationError(nodeID, "email",
				"email task requires email spec", ErrUnknownTaskKind)
		}
		if _, err := ParsePath(task.Email.To); err != nil {
			return NewValidationError(nodeID, "email.to", err.Error(), err)
		}
		if _, err := ParseTemplate(task.Email.Body); err != nil {
			return NewValidationError(nodeID, "email.body", err.Error(), err)
		}
	}

	if task.ResultSelector != nil {
		if err := validateSelector(task.ResultSelector, 0); err != nil {
			return NewValidationError(nodeID, "result_selector", err.Error(), err)
		}
	}

	if task.OutputPath != "" {
		if _, err := ParsePath(task.OutputPath); err != nil {
			return NewValidationError(nodeID, "output_path", err.Error(), err)
		}
	}

	if task.Retry != nil {
		if err := validateRetry(nodeID, task.Retry); err != nil {
			return err
		}
	}

	return nil
}

// validateRetry валидирует retry-политику.
func validateRetry(nodeID string, policy *domain.RetryPolicy) error {
	if len(policy.Kinds) == 0 {
		return NewValidationError(nodeID, "retry.kinds",
			"retry policy must name matched error kinds (or \"all\")", ErrUnknownTaskKind)
	}
	if policy.MaxAttempts < 1 {
		return NewValidationError(nodeID, "retry.max_attempts",
			"retry policy requires max_attempts >= 1", ErrUnknownTaskKind)
	}
	if policy.Multiplier < 0 {
		return NewValidationError(nodeID, "retry.multiplier",
			"retry multiplier must not be negative", ErrUnknownTaskKind)
	}
	return nil
}

// validateParallel валидирует parallel узел.
func validateParallel(nodeID string, par *domain.ParallelSpec, nodeIDs map[string]bool) error {
	if len(par.Branches) == 0 {
		return NewValidationError(nodeID, "branches",
			"parallel node has no branches", ErrEmptyBranches)
	}

	branchIDs := make(map[string]bool, len(par.Branches))
	for i := range par.Branches {
		branch := &par.Branches[i]

		if branchIDs[branch.ID] {
			return NewValidationError(nodeID, "branches",
				fmt.Sprintf("duplicate branch ID: %s", branch.ID), ErrDuplicateBranchID)
		}
		branchIDs[branch.ID] = true

		if len(branch.Nodes) == 0 {
			return NewValidationError(nodeID, "branches",
				fmt.Sprintf("branch %s has no nodes", branch.ID), ErrEmptyBranchNodes)
		}

		if err := validateChain(branch.Nodes, nodeIDs, false); err != nil {
			return err
		}
	}

	if len(par.Aggregate) == 0 {
		return NewValidationError(nodeID, "aggregate",
			"parallel node requires an aggregate selector", ErrEmptyBranches)
	}
	if err := validateSelector(par.Aggregate, len(par.Branches)); err != nil {
		return NewValidationError(nodeID, "aggregate", err.Error(), err)
	}

	return nil
}
