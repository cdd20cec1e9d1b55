// Package repo содержит слой доступа к PostgreSQL.
//
// Хранится только журнал запусков workflow (таблица runs): статус,
// триггер, ошибка и тайминги. Контекст выполнения и история шагов
// не персистятся — run живёт в памяти выполняющего процесса.
package repo
