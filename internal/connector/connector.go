// Package connector хранит именованные конфигурации внешних вызовов.
//
// Connector — это "куда и как" одного внешнего API: базовый URL и
// ссылка на credential. Сами секреты разрешаются лениво в момент
// вызова через CredentialProvider и никогда не кэшируются реестром.
package connector

import (
	"errors"
	"fmt"
	"sync"
)

// Ошибки реестра.
var (
	// ErrUnknownConnector — connector не найден в реестре (misconfiguration).
	ErrUnknownConnector = errors.New("unknown connector")

	// ErrEmptyName — connector без имени не регистрируется.
	ErrEmptyName = errors.New("connector has empty name")
)

// Заголовок авторизации по умолчанию.
const defaultAuthHeader = "Authorization"

// Connector — конфигурация одного внешнего API.
//
// Секрет в определение не встраивается: AuthRef — непрозрачная ссылка,
// которую CredentialProvider разрешает при каждом вызове.
type Connector struct {
	// Name — уникальное имя connector'а ("licensing", "payments").
	Name string `json:"name"`

	// BaseURL — базовый endpoint API, включая фиксированный префикс пути.
	BaseURL string `json:"base_url"`

	// AuthRef — ссылка на credential (имя секрета).
	AuthRef string `json:"auth_ref,omitempty"`

	// AuthHeader — заголовок, в котором передаётся секрет.
	// Пусто — "Authorization".
	AuthHeader string `json:"auth_header,omitempty"`
}

// Header возвращает имя заголовка авторизации.
func (c *Connector) Header() string {
	if c.AuthHeader == "" {
		return defaultAuthHeader
	}
	return c.AuthHeader
}

// Registry — реестр connector'ов.
//
// Заполняется при старте и далее только читается, поэтому безопасен
// для конкурентных lookup'ов из параллельных веток.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		connectors: make(map[string]Connector),
	}
}

// Register регистрирует connector в реестре.
// Connector с существующим именем перезаписывается.
func (r *Registry) Register(c Connector) error {
	if c.Name == "" {
		return ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Name] = c
	return nil
}

// Resolve возвращает connector по имени.
// Возвращает ErrUnknownConnector, если connector не зарегистрирован.
func (r *Registry) Resolve(name string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.connectors[name]
	if !exists {
		return Connector{}, fmt.Errorf("%w: %s", ErrUnknownConnector, name)
	}

	return c, nil
}

// Has проверяет, зарегистрирован ли connector.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.connectors[name]
	return exists
}

// Names возвращает имена всех зарегистрированных connector'ов.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		names = append(names, name)
	}
	return names
}
