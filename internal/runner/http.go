package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaiso/Machina/internal/connector"
	"github.com/shaiso/Machina/internal/domain"
	"github.com/shaiso/Machina/internal/engine"
)

const (
	defaultCallTimeout = 30 * time.Second
	maxResponseBody    = 10 * 1024 * 1024 // 10 MB
)

// HTTPInvoker — invoker для задач вида "http".
//
// Строит запрос из контекста выполнения:
//   - URL = BaseURL connector'а + отрендеренный Path
//   - тело = Body-селектор, разрешённый против контекста
//   - авторизация = секрет connector'а, разрешённый в момент вызова
//
// Результат:
//
//	{
//	    "status_code": 200,
//	    "headers": {"Content-Type": "application/json", ...},
//	    "body": {...}  // JSON или строка
//	}
type HTTPInvoker struct {
	connectors *connector.Registry
	creds      connector.CredentialProvider
	client     *http.Client
}

// NewHTTPInvoker создаёт HTTPInvoker.
func NewHTTPInvoker(connectors *connector.Registry, creds connector.CredentialProvider) *HTTPInvoker {
	return &HTTPInvoker{
		connectors: connectors,
		creds:      creds,
		client:     &http.Client{},
	}
}

// Invoke выполняет HTTP-вызов.
func (inv *HTTPInvoker) Invoke(ctx context.Context, node *domain.Node, doc map[string]any) (map[string]any, error) {
	task := node.Task

	// Connector — до построения запроса: misconfiguration не retry'ится
	conn, err := inv.connectors.Resolve(task.Connector)
	if err != nil {
		return nil, err
	}

	timeout := defaultCallTimeout
	if task.TimeoutSec > 0 {
		timeout = time.Duration(task.TimeoutSec) * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := inv.buildRequest(callCtx, task, conn, doc)
	if err != nil {
		return nil, err
	}

	resp, err := inv.client.Do(req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return nil, &CallError{Kind: KindTimeout, Retryable: true, Err: err}
		}
		return nil, &CallError{Kind: KindTransport, Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	return parseResponse(resp)
}

// buildRequest строит HTTP-запрос из спецификации задачи и контекста.
// Любая ошибка здесь (включая ErrMissingField) возвращается до того,
// как внешний вызов будет предпринят.
func (inv *HTTPInvoker) buildRequest(ctx context.Context, task *domain.TaskSpec, conn connector.Connector, doc map[string]any) (*http.Request, error) {
	path, err := engine.Render(task.Path, doc)
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if task.Body != nil {
		body, err := engine.Project(doc, task.Body)
		if err != nil {
			return nil, err
		}
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	method := strings.ToUpper(task.Method)
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, conn.BaseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for key, tmpl := range task.Headers {
		val, err := engine.Render(tmpl, doc)
		if err != nil {
			return nil, err
		}
		req.Header.Set(key, val)
	}

	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	// Секрет разрешается на каждую попытку и нигде не кэшируется
	if conn.AuthRef != "" {
		secret, err := inv.creds.Resolve(ctx, conn.AuthRef)
		if err != nil {
			return nil, &CallError{Kind: KindCredentials, Retryable: false, Err: err}
		}
		req.Header.Set(conn.Header(), secret)
	}

	return req, nil
}

// parseResponse превращает HTTP-ответ в документ результата.
// Ответы >= 400 — ошибка вызова: 5xx и 429 транзиентные, прочие нет.
func parseResponse(resp *http.Response) (map[string]any, error) {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &CallError{Kind: KindTransport, Retryable: true, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode >= 400 {
		kind := KindHTTPClient
		retryable := false
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			kind = KindHTTPServer
			retryable = true
		}
		return nil, &CallError{
			Kind:      kind,
			Retryable: retryable,
			Err:       fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(bodyBytes), 200)),
		}
	}

	// Парсим body: JSON по Content-Type, иначе строка
	var body any
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		if err := json.Unmarshal(bodyBytes, &body); err != nil {
			body = string(bodyBytes)
		}
	} else {
		body = string(bodyBytes)
	}

	headers := make(map[string]any, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return map[string]any{
		"status_code": resp.StatusCode,
		"headers":     headers,
		"body":        body,
	}, nil
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
