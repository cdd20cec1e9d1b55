package domain

// RunStatus — статус выполнения run.
//
// Жизненный цикл:
//
//	READY → RUNNING → SUCCEEDED
//	                ↘ FAILED
//
// RUNNING — единственное нетерминальное состояние после старта:
// пауз и чекпоинтов между узлами нет, run выполняется за один заход.
type RunStatus string

const (
	// RunStatusReady — run создан, но ещё не начал выполняться.
	RunStatusReady RunStatus = "READY"

	// RunStatusRunning — run в процессе выполнения.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — run успешно завершён.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — run завершился с ошибкой.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed:
		return true
	default:
		return false
	}
}
