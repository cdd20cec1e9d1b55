package domain

// NodeType — тип узла в определении workflow.
const (
	// NodeTypeTask — узел, выполняющий один внешний вызов.
	NodeTypeTask = "task"

	// NodeTypeParallel — узел, выполняющий ветки параллельно.
	NodeTypeParallel = "parallel"
)

// Виды задач (TaskSpec.Kind).
const (
	// TaskKindHTTP — HTTP-вызов через connector.
	TaskKindHTTP = "http"

	// TaskKindEmail — отправка письма через Mailer.
	TaskKindEmail = "email"
)

// Definition — определение workflow.
//
// Definition — это фиксированный граф: упорядоченная цепочка узлов,
// которая выполняется от первого узла до терминального. Граф задаётся
// один раз при загрузке и не меняется во время выполнения.
//
// Инварианты (проверяются engine.Validate):
//   - цепочка содержит хотя бы один узел;
//   - последний узел цепочки — терминальный, остальные нет;
//   - каждый нетерминальный узел имеет ровно одного преемника
//     (следующий элемент цепочки).
type Definition struct {
	// Name — имя workflow (например, "purchase-handler").
	Name string `json:"name"`

	// Nodes — упорядоченная цепочка узлов.
	Nodes []Node `json:"nodes"`
}

// Node — узел workflow: task или parallel.
//
// Полиморфизм выражен данными: Type определяет, какое из полей
// (Task или Parallel) заполнено. Интерпретацией занимается runner.
type Node struct {
	// ID — уникальный идентификатор узла в рамках definition.
	ID string `json:"id"`

	// Type — тип узла: "task" или "parallel".
	Type string `json:"type"`

	// Terminal — флаг терминального узла. Выход терминального узла
	// становится итоговым результатом workflow.
	Terminal bool `json:"terminal,omitempty"`

	// Task — спецификация задачи (для Type == "task").
	Task *TaskSpec `json:"task,omitempty"`

	// Parallel — спецификация параллельного блока (для Type == "parallel").
	Parallel *ParallelSpec `json:"parallel,omitempty"`
}

// TaskSpec — спецификация одного внешнего вызова.
//
// Задача строит запрос из текущего контекста выполнения (через
// path-выражения и шаблоны), выполняет ровно один внешний вызов
// на попытку и проецирует ответ в новый контекст.
type TaskSpec struct {
	// Kind — вид задачи: "http" или "email".
	Kind string `json:"kind"`

	// Connector — имя connector'а из реестра (для kind == "http").
	Connector string `json:"connector,omitempty"`

	// Method — HTTP-метод (GET, POST, ...). Default: GET.
	Method string `json:"method,omitempty"`

	// Path — шаблон пути ресурса относительно BaseURL connector'а.
	// Может содержать path-ссылки: "/customers/{data.customer_id}".
	Path string `json:"path,omitempty"`

	// Headers — дополнительные заголовки. Значения — шаблоны.
	Headers map[string]string `json:"headers,omitempty"`

	// Body — селектор тела запроса. Строковые значения, начинающиеся
	// с "$", извлекаются из контекста; остальные — литералы.
	Body map[string]any `json:"body,omitempty"`

	// Email — параметры письма (для kind == "email").
	Email *EmailSpec `json:"email,omitempty"`

	// ResultSelector — селектор, преобразующий сырой ответ вызова
	// в промежуточный документ. Nil — ответ берётся как есть.
	ResultSelector map[string]any `json:"result_selector,omitempty"`

	// OutputPath — path-выражение, выбирающее под-документ, который
	// станет контекстом следующего узла. Пусто — весь документ.
	OutputPath string `json:"output_path,omitempty"`

	// Retry — политика повторных попыток. Nil — без retry.
	// Поле задаётся явно: умолчание "нет retry" никогда не подменяется.
	Retry *RetryPolicy `json:"retry,omitempty"`

	// TimeoutSec — таймаут одной попытки вызова в секундах.
	// 0 — используется таймаут по умолчанию.
	TimeoutSec int `json:"timeout_sec,omitempty"`
}

// EmailSpec — параметры отправки письма.
type EmailSpec struct {
	// To — path-выражение адреса получателя ("$.customer.data.email").
	To string `json:"to"`

	// From — адрес отправителя (литерал).
	From string `json:"from"`

	// Subject — тема письма (литерал).
	Subject string `json:"subject"`

	// Body — шаблон тела письма с path-ссылками:
	// "Hi {customer.data.name}, ...".
	Body string `json:"body"`
}

// ParallelSpec — спецификация параллельного блока.
//
// Все ветки получают независимую копию входного контекста и выполняются
// одновременно. Порядок веток фиксирован: в селекторе агрегации выход
// ветки i адресуется как "$[i]".
type ParallelSpec struct {
	// Branches — упорядоченный набор веток.
	Branches []Branch `json:"branches"`

	// Aggregate — селектор агрегации, собирающий выходы веток
	// в единый контекст: {"license": "$[0]", "customer": "$[1]"}.
	Aggregate map[string]any `json:"aggregate"`
}

// Branch — ветка параллельного блока: под-цепочка узлов.
type Branch struct {
	// ID — идентификатор ветки (для логов и ошибок).
	ID string `json:"id"`

	// Nodes — узлы ветки, выполняются последовательно.
	Nodes []Node `json:"nodes"`
}

// RetryPolicy — политика повторных попыток задачи.
type RetryPolicy struct {
	// Kinds — виды ошибок, при которых делается retry.
	// Специальное значение "all" соответствует любому виду ошибки вызова.
	Kinds []string `json:"kinds,omitempty"`

	// IntervalMs — базовая задержка между попытками в миллисекундах.
	IntervalMs int `json:"interval_ms,omitempty"`

	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int `json:"max_attempts,omitempty"`

	// Multiplier — множитель экспоненциального backoff.
	// 0 или 1 — фиксированная задержка.
	Multiplier float64 `json:"multiplier,omitempty"`
}

// Matches проверяет, входит ли вид ошибки в набор политики.
func (p *RetryPolicy) Matches(kind string) bool {
	for _, k := range p.Kinds {
		if k == "all" || k == kind {
			return true
		}
	}
	return false
}

// Entry возвращает входной узел definition.
func (d *Definition) Entry() *Node {
	if len(d.Nodes) == 0 {
		return nil
	}
	return &d.Nodes[0]
}
