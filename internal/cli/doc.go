// Package cli реализует инструмент командной строки Machina.
//
// Команды:
//   - run      — одноразовое выполнение fulfillment workflow
//     для события покупки из файла (без очереди и БД)
//   - publish  — публикация события покупки в очередь fulfiller'а
//   - validate — структурная проверка определения workflow
//
// Команды создаются фабричными функциями (NewRunCmd и т.д.),
// принимающими outputFn — замыкание для создания Output после
// парсинга флагов.
package cli
