// Package mail предоставляет абстракцию отправки транзакционных писем.
//
// Движку workflow нужен только интерфейс Mailer; конкретная реализация
// (HTTP API почтового провайдера, запись в лог, фейк в тестах)
// подставляется при сборке сервиса.
package mail

import (
	"context"
	"errors"
)

// ErrSendFailed — отправка письма не удалась.
var ErrSendFailed = errors.New("email send failed")

// Message — письмо для отправки.
type Message struct {
	// To — адрес получателя.
	To string `json:"to"`

	// From — адрес отправителя.
	From string `json:"from"`

	// Subject — тема письма.
	Subject string `json:"subject"`

	// Text — текстовое тело письма.
	Text string `json:"text"`
}

// Mailer отправляет письма.
//
// Send возвращает идентификатор письма у провайдера (если есть).
// Реализации должны уважать отмену через ctx.
type Mailer interface {
	Send(ctx context.Context, msg Message) (string, error)
}
