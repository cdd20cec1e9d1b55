// Package engine реализует работу с данными workflow:
//
//   - path.go — path-выражения для извлечения значений из документа
//   - template.go — строковые шаблоны с path-ссылками
//   - selector.go — проекция документа через селекторы
//   - clone.go — глубокое копирование контекста (copy-on-fanout)
//   - validate.go — валидация definition при загрузке
//
// Все операции синхронные и чистые: engine не делает I/O.
// Path-выражения и шаблоны парсятся один раз при валидации,
// ошибки формата выявляются до начала выполнения.
package engine
