package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — одно выполнение workflow.
//
// Run создаётся когда:
//   - Из очереди приходит событие покупки (fulfillment service)
//   - Пользователь запускает workflow вручную (CLI)
//
// Run хранит ровно то, что нужно для наблюдения за текущим выполнением:
// статус, ошибку и тайминги. Истории шагов и чекпоинтов нет.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Workflow — имя выполняемого definition.
	Workflow string `json:"workflow"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// Trigger — входной документ (событие покупки), запустивший run.
	Trigger map[string]any `json:"trigger,omitempty"`

	// Error — текст ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// FailedNode — ID узла, на котором run упал.
	FailedNode string `json:"failed_node,omitempty"`

	// StartedAt — время начала выполнения.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения (успешного или с ошибкой).
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе READY.
func NewRun(workflow string, trigger map[string]any) *Run {
	return &Run{
		ID:        uuid.New(),
		Workflow:  workflow,
		Status:    RunStatusReady,
		Trigger:   trigger,
		CreatedAt: time.Now(),
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён.
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// MarkRunning переводит run в статус RUNNING.
func (r *Run) MarkRunning() {
	now := time.Now()
	r.Status = RunStatusRunning
	r.StartedAt = &now
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded() {
	now := time.Now()
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
}

// MarkFailed переводит run в статус FAILED с ошибкой.
func (r *Run) MarkFailed(node, err string) {
	now := time.Now()
	r.Status = RunStatusFailed
	r.FailedNode = node
	r.Error = err
	r.FinishedAt = &now
}
