package runner

import (
	"errors"
	"fmt"
)

// Ошибки выполнения workflow.
var (
	// ErrCallFailed — внешний вызов завершился ошибкой (транспорт/HTTP).
	ErrCallFailed = errors.New("external call failed")

	// ErrStepFailed — retry задачи исчерпаны или вид ошибки не входит
	// в политику.
	ErrStepFailed = errors.New("step failed")

	// ErrBranchFailed — ветка parallel узла завершилась невосстановимой
	// ошибкой.
	ErrBranchFailed = errors.New("branch failed")

	// ErrWorkflowFailed — выполнение workflow прервано ошибкой узла.
	ErrWorkflowFailed = errors.New("workflow failed")

	// ErrUnknownKind — нет invoker'а для данного вида задачи.
	ErrUnknownKind = errors.New("unknown task kind")

	// ErrBadOutput — output path выбрал не документ (ожидается JSON-объект).
	ErrBadOutput = errors.New("output path must select a document")
)

// Виды ошибок внешнего вызова (CallError.Kind).
// На эти виды ссылаются retry-политики (RetryPolicy.Kinds).
const (
	// KindTimeout — попытка вызова превысила таймаут.
	KindTimeout = "timeout"

	// KindTransport — сетевая ошибка до получения ответа.
	KindTransport = "transport"

	// KindHTTPServer — ответ 5xx или 429.
	KindHTTPServer = "http_server"

	// KindHTTPClient — прочие ответы >= 400.
	KindHTTPClient = "http_client"

	// KindCredentials — не удалось разрешить credential.
	KindCredentials = "credentials"

	// KindEmail — отправка письма не удалась.
	KindEmail = "email"
)

// CallError — ошибка одного внешнего вызова с классификацией.
//
// Retryable — транзиентность по классификации (таймаут, транспорт,
// 5xx/429). Решение о retry принимает StepExecutor по видам ошибок
// из политики задачи; классификация попадает в логи и сообщения.
type CallError struct {
	// Kind — вид ошибки (Kind* константы).
	Kind string

	// Retryable — считается ли ошибка транзиентной.
	Retryable bool

	// Err — причина.
	Err error
}

// Error реализует интерфейс error.
func (e *CallError) Error() string {
	return fmt.Sprintf("call failed (%s): %v", e.Kind, e.Err)
}

// Unwrap возвращает причину.
func (e *CallError) Unwrap() error {
	return e.Err
}

// Is сопоставляет CallError с ErrCallFailed.
func (e *CallError) Is(target error) bool {
	return target == ErrCallFailed
}

// StepError — невосстановимая ошибка задачи: retry исчерпаны
// или вид ошибки не входит в политику.
type StepError struct {
	// Node — ID узла задачи.
	Node string

	// Kind — вид последней ошибки вызова.
	Kind string

	// Attempts — количество выполненных попыток.
	Attempts int

	// Err — последняя ошибка вызова.
	Err error
}

// Error реализует интерфейс error.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed after %d attempt(s) (%s): %v", e.Node, e.Attempts, e.Kind, e.Err)
}

// Unwrap возвращает причину.
func (e *StepError) Unwrap() error {
	return e.Err
}

// Is сопоставляет StepError с ErrStepFailed.
func (e *StepError) Is(target error) bool {
	return target == ErrStepFailed
}

// BranchError — ошибка ветки parallel узла.
// Несёт позиционный индекс ветки и её ID.
type BranchError struct {
	// Branch — позиционный индекс упавшей ветки.
	Branch int

	// BranchID — идентификатор ветки.
	BranchID string

	// Err — ошибка ветки.
	Err error
}

// Error реализует интерфейс error.
func (e *BranchError) Error() string {
	return fmt.Sprintf("branch %d (%s) failed: %v", e.Branch, e.BranchID, e.Err)
}

// Unwrap возвращает причину.
func (e *BranchError) Unwrap() error {
	return e.Err
}

// Is сопоставляет BranchError с ErrBranchFailed.
func (e *BranchError) Is(target error) bool {
	return target == ErrBranchFailed
}

// WorkflowError — итоговая ошибка выполнения workflow.
//
// Это структурированный отчёт для вызывающей стороны: какой узел упал,
// какой вид ошибки и сколько было попыток. Частичный контекст
// выполнения наружу не отдаётся.
type WorkflowError struct {
	// Workflow — имя definition.
	Workflow string

	// Node — ID упавшего узла (если известен).
	Node string

	// Attempts — количество попыток упавшей задачи (если известно).
	Attempts int

	// Err — цепочка причин.
	Err error
}

// Error реализует интерфейс error.
func (e *WorkflowError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("workflow %s failed at node %s: %v", e.Workflow, e.Node, e.Err)
	}
	return fmt.Sprintf("workflow %s failed: %v", e.Workflow, e.Err)
}

// Unwrap возвращает причину.
func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Is сопоставляет WorkflowError с ErrWorkflowFailed.
func (e *WorkflowError) Is(target error) bool {
	return target == ErrWorkflowFailed
}

// newWorkflowError строит WorkflowError, извлекая идентичность
// упавшего узла из цепочки причин.
func newWorkflowError(workflow string, err error) *WorkflowError {
	we := &WorkflowError{Workflow: workflow, Err: err}

	var stepErr *StepError
	if errors.As(err, &stepErr) {
		we.Node = stepErr.Node
		we.Attempts = stepErr.Attempts
	}

	return we
}
