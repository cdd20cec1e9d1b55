package runner

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shaiso/Machina/internal/connector"
	"github.com/shaiso/Machina/internal/domain"
	"github.com/shaiso/Machina/internal/engine"
)

func newHTTPTestInvoker(t *testing.T, baseURL string) *HTTPInvoker {
	t.Helper()

	connectors := connector.NewRegistry()
	if err := connectors.Register(connector.Connector{
		Name:    "licensing",
		BaseURL: baseURL,
		AuthRef: "LICENSING_API_KEY",
	}); err != nil {
		t.Fatalf("register connector: %v", err)
	}

	creds := connector.StaticCredentials{"LICENSING_API_KEY": "Bearer test-key"}
	return NewHTTPInvoker(connectors, creds)
}

func TestHTTPInvoker_Post(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"lic-1"}}`))
	}))
	defer srv.Close()

	inv := newHTTPTestInvoker(t, srv.URL)
	node := taskNode("create-license", &domain.TaskSpec{
		Kind:      "http",
		Connector: "licensing",
		Method:    "POST",
		Path:      "/licenses",
		Body: map[string]any{
			"transaction_id": "$.data.id",
			"type":           "licenses",
		},
	})

	doc := map[string]any{"data": map[string]any{"id": "txn-1"}}
	out, err := inv.Invoke(context.Background(), node, doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("expected resolved credential in Authorization, got %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected default Content-Type, got %q", gotContentType)
	}
	if gotBody["transaction_id"] != "txn-1" || gotBody["type"] != "licenses" {
		t.Errorf("body selector should resolve against the document, got %v", gotBody)
	}

	if out["status_code"] != http.StatusCreated {
		t.Errorf("expected status_code 201, got %v", out["status_code"])
	}
	body, ok := out["body"].(map[string]any)
	if !ok {
		t.Fatalf("expected parsed JSON body, got %T", out["body"])
	}
	if body["data"].(map[string]any)["id"] != "lic-1" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestHTTPInvoker_TemplatedPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	inv := newHTTPTestInvoker(t, srv.URL)
	node := taskNode("get-customer", &domain.TaskSpec{
		Kind:      "http",
		Connector: "licensing",
		Method:    "GET",
		Path:      "/customers/{data.customer_id}",
	})

	doc := map[string]any{"data": map[string]any{"customer_id": "cus-7"}}
	if _, err := inv.Invoke(context.Background(), node, doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/customers/cus-7" {
		t.Errorf("path template should render from the document, got %q", gotPath)
	}
}

func TestHTTPInvoker_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		kind      string
		retryable bool
	}{
		{"server error", http.StatusInternalServerError, KindHTTPServer, true},
		{"rate limited", http.StatusTooManyRequests, KindHTTPServer, true},
		{"not found", http.StatusNotFound, KindHTTPClient, false},
		{"unprocessable", http.StatusUnprocessableEntity, KindHTTPClient, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			inv := newHTTPTestInvoker(t, srv.URL)
			node := taskNode("call", &domain.TaskSpec{Kind: "http", Connector: "licensing", Path: "/x"})

			_, err := inv.Invoke(context.Background(), node, map[string]any{})
			var callErr *CallError
			if !errors.As(err, &callErr) {
				t.Fatalf("expected CallError, got %v", err)
			}
			if callErr.Kind != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, callErr.Kind)
			}
			if callErr.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, callErr.Retryable)
			}
		})
	}
}

func TestHTTPInvoker_MissingFieldBeforeCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	inv := newHTTPTestInvoker(t, srv.URL)
	node := taskNode("get-customer", &domain.TaskSpec{
		Kind:      "http",
		Connector: "licensing",
		Path:      "/customers/{data.customer_id}",
	})

	_, err := inv.Invoke(context.Background(), node, map[string]any{"data": map[string]any{}})
	if !errors.Is(err, engine.ErrMissingField) {
		t.Fatalf("expected ErrMissingField, got %v", err)
	}
	if called {
		t.Error("request must not be sent when the document lacks a referenced field")
	}
}

func TestHTTPInvoker_MissingCredential(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	connectors := connector.NewRegistry()
	_ = connectors.Register(connector.Connector{Name: "licensing", BaseURL: srv.URL, AuthRef: "ABSENT"})
	inv := NewHTTPInvoker(connectors, connector.StaticCredentials{})

	node := taskNode("call", &domain.TaskSpec{Kind: "http", Connector: "licensing", Path: "/x"})
	_, err := inv.Invoke(context.Background(), node, map[string]any{})

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if callErr.Kind != KindCredentials || callErr.Retryable {
		t.Errorf("expected non-retryable credentials error, got %+v", callErr)
	}
	if called {
		t.Error("request must not be sent without a resolved credential")
	}
}
