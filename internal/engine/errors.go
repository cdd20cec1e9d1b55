package engine

import (
	"errors"
	"fmt"
)

// Ошибки path-выражений и шаблонов.
var (
	// ErrPathSyntax — некорректный синтаксис path-выражения.
	ErrPathSyntax = errors.New("invalid path expression")

	// ErrTemplateSyntax — некорректный синтаксис шаблона.
	ErrTemplateSyntax = errors.New("invalid template")

	// ErrMissingField — path-выражение ссылается на отсутствующее поле.
	// Это ошибка данных (несовпадение формы документа), не структуры.
	ErrMissingField = errors.New("missing field")
)

// Ошибки валидации definition.
var (
	// ErrEmptyNodes — definition не содержит узлов.
	ErrEmptyNodes = errors.New("definition has no nodes")

	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNodeType — неизвестный тип узла.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrUnknownTaskKind — неизвестный вид задачи.
	ErrUnknownTaskKind = errors.New("unknown task kind")

	// ErrNoTerminalNode — цепочка не заканчивается терминальным узлом.
	ErrNoTerminalNode = errors.New("chain has no terminal node")

	// ErrTerminalNotLast — терминальный флаг стоит не на последнем узле.
	ErrTerminalNotLast = errors.New("terminal node is not the last node")

	// ErrEmptyBranches — parallel узел не содержит веток.
	ErrEmptyBranches = errors.New("parallel node has no branches")

	// ErrDuplicateBranchID — несколько веток с одинаковым ID.
	ErrDuplicateBranchID = errors.New("duplicate branch ID")

	// ErrEmptyBranchNodes — ветка не содержит узлов.
	ErrEmptyBranchNodes = errors.New("branch has no nodes")

	// ErrBranchIndex — селектор агрегации ссылается на несуществующую ветку.
	ErrBranchIndex = errors.New("aggregate selector references unknown branch index")
)

// MissingFieldError — ошибка разрешения path-выражения с контекстом.
type MissingFieldError struct {
	// Path — исходное path-выражение.
	Path string

	// Segment — сегмент, на котором разрешение остановилось.
	Segment string
}

// Error реализует интерфейс error.
func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q in path %q", e.Segment, e.Path)
}

// Unwrap возвращает базовую ошибку.
func (e *MissingFieldError) Unwrap() error {
	return ErrMissingField
}

// ValidationError — ошибка валидации definition с контекстом.
type ValidationError struct {
	NodeID  string // ID узла, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
