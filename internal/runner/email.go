package runner

import (
	"context"
	"fmt"

	"github.com/shaiso/Machina/internal/domain"
	"github.com/shaiso/Machina/internal/engine"
	"github.com/shaiso/Machina/internal/mail"
)

// EmailInvoker — invoker для задач вида "email".
//
// Адрес получателя извлекается path-выражением, тело рендерится
// шаблоном с path-ссылками; оба — против текущего контекста.
//
// Результат:
//
//	{
//	    "to": "ana@example.com",
//	    "subject": "Your license key",
//	    "message_id": "..."  // если провайдер вернул
//	}
type EmailInvoker struct {
	mailer mail.Mailer
}

// NewEmailInvoker создаёт EmailInvoker.
func NewEmailInvoker(mailer mail.Mailer) *EmailInvoker {
	return &EmailInvoker{mailer: mailer}
}

// Invoke отправляет письмо.
func (inv *EmailInvoker) Invoke(ctx context.Context, node *domain.Node, doc map[string]any) (map[string]any, error) {
	spec := node.Task.Email

	// Построение письма — до внешнего вызова: ошибки данных не retry'ятся
	toVal, err := engine.Extract(doc, spec.To)
	if err != nil {
		return nil, err
	}
	to, ok := toVal.(string)
	if !ok || to == "" {
		return nil, &engine.MissingFieldError{Path: spec.To, Segment: "recipient address"}
	}

	body, err := engine.Render(spec.Body, doc)
	if err != nil {
		return nil, err
	}

	msgID, err := inv.mailer.Send(ctx, mail.Message{
		To:      to,
		From:    spec.From,
		Subject: spec.Subject,
		Text:    body,
	})
	if err != nil {
		return nil, &CallError{Kind: KindEmail, Retryable: true, Err: fmt.Errorf("send to %s: %w", to, err)}
	}

	outputs := map[string]any{
		"to":      to,
		"subject": spec.Subject,
	}
	if msgID != "" {
		outputs["message_id"] = msgID
	}

	return outputs, nil
}
