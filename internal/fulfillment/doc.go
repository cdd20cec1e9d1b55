// Package fulfillment содержит конкретный purchase-handler workflow:
// параллельное создание лицензии и загрузка данных покупателя, затем
// письмо с ключом лицензии.
//
// Состав:
//   - config.go     — конфигурация из окружения, connector'ы
//   - definition.go — определение workflow (фиксированный граф)
//   - service.go    — потребление событий покупок и выполнение runs
package fulfillment
