// Package runner выполняет workflow: интерпретирует цепочку узлов
// definition от триггера до терминального результата.
//
// Состав:
//   - runner.go — обход цепочки и координация parallel веток
//   - executor.go — выполнение одной задачи с retry/backoff
//   - invoker.go — реестр invoker'ов по виду задачи
//   - http.go, email.go — внешние вызовы (HTTP API, письма)
//
// Единственная точка конкуренции — parallel узел: ветки выполняются
// горутинами над независимыми копиями контекста и объединяются
// позиционным селектором агрегации.
package runner
