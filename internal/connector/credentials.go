package connector

import (
	"context"
	"errors"
	"fmt"
	"os"
)

// ErrCredentialNotFound — секрет по ссылке не найден.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialProvider разрешает ссылку на credential в секрет.
//
// Разрешение происходит в момент вызова, без кэширования на стороне
// реестра. Реализации должны быть безопасны для конкурентных вызовов:
// Resolve — идемпотентное чтение без побочных эффектов.
type CredentialProvider interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvCredentials — CredentialProvider поверх переменных окружения.
// Ссылка — имя переменной: AuthRef "LICENSING_API_KEY" читается
// из одноимённой переменной.
type EnvCredentials struct{}

// Resolve возвращает значение переменной окружения.
func (EnvCredentials) Resolve(_ context.Context, ref string) (string, error) {
	val, ok := os.LookupEnv(ref)
	if !ok || val == "" {
		return "", fmt.Errorf("%w: %s", ErrCredentialNotFound, ref)
	}
	return val, nil
}

// StaticCredentials — CredentialProvider поверх фиксированной map.
// Используется в тестах и для локальных запусков.
type StaticCredentials map[string]string

// Resolve возвращает секрет из map.
func (s StaticCredentials) Resolve(_ context.Context, ref string) (string, error) {
	val, ok := s[ref]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrCredentialNotFound, ref)
	}
	return val, nil
}
