package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Machina/internal/connector"
)

const (
	defaultSendTimeout = 15 * time.Second
	maxResponseBody    = 1 * 1024 * 1024 // 1 MB
)

// APIMailer — Mailer поверх HTTP API транзакционного почтового провайдера.
//
// Отправка — это POST JSON {from, to, subject, text} на endpoint
// connector'а "email" с API-key авторизацией. Секрет разрешается
// через CredentialProvider при каждой отправке.
type APIMailer struct {
	conn   connector.Connector
	creds  connector.CredentialProvider
	client *http.Client
}

// NewAPIMailer создаёт APIMailer.
func NewAPIMailer(conn connector.Connector, creds connector.CredentialProvider) *APIMailer {
	return &APIMailer{
		conn:   conn,
		creds:  creds,
		client: &http.Client{Timeout: defaultSendTimeout},
	}
}

// Send отправляет письмо через HTTP API провайдера.
func (m *APIMailer) Send(ctx context.Context, msg Message) (string, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("%w: marshal message: %v", ErrSendFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.conn.BaseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if m.conn.AuthRef != "" {
		secret, err := m.creds.Resolve(ctx, m.conn.AuthRef)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
		}
		req.Header.Set(m.conn.Header(), secret)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrSendFailed, err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: HTTP %d: %s", ErrSendFailed, resp.StatusCode, truncate(string(respBody), 200))
	}

	// Провайдеры обычно возвращают {"id": "..."}; отсутствие id не ошибка
	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &parsed); err == nil && parsed.ID != "" {
		return parsed.ID, nil
	}

	return "", nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
