package runner

import (
	"context"
	"fmt"

	"github.com/shaiso/Machina/internal/connector"
	"github.com/shaiso/Machina/internal/domain"
	"github.com/shaiso/Machina/internal/mail"
)

// Invoker выполняет внешний вызов одного вида задач.
//
// Реализации: HTTPInvoker, EmailInvoker.
//
// Invoke строит запрос из текущего контекста, выполняет ровно один
// внешний вызов и возвращает сырой документ результата. Ошибки вызова
// возвращаются как *CallError; ошибки построения запроса (например,
// ErrMissingField) — как есть, до какого-либо внешнего вызова.
type Invoker interface {
	Invoke(ctx context.Context, node *domain.Node, doc map[string]any) (map[string]any, error)
}

// Registry — реестр invoker'ов по виду задачи.
type Registry struct {
	invokers map[string]Invoker
}

// NewRegistry создаёт реестр с invoker'ами по умолчанию.
//
// Регистрирует: http (через connector registry), email (через mailer).
// Mailer == nil — вид "email" не регистрируется.
func NewRegistry(connectors *connector.Registry, creds connector.CredentialProvider, mailer mail.Mailer) *Registry {
	r := &Registry{invokers: make(map[string]Invoker)}
	r.Register(domain.TaskKindHTTP, NewHTTPInvoker(connectors, creds))
	if mailer != nil {
		r.Register(domain.TaskKindEmail, NewEmailInvoker(mailer))
	}
	return r
}

// Register добавляет invoker для вида задачи.
func (r *Registry) Register(kind string, invoker Invoker) {
	r.invokers[kind] = invoker
}

// Get возвращает invoker для вида задачи.
func (r *Registry) Get(kind string) (Invoker, error) {
	invoker, ok := r.invokers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	return invoker, nil
}
