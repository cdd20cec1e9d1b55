package engine

import (
	"errors"
	"testing"
)

func testDoc() map[string]any {
	return map[string]any{
		"data": map[string]any{
			"id":          "t1",
			"customer_id": "c1",
			"amount":      42.5,
			"items":       []any{"a", "b"},
		},
	}
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "root", expr: "$"},
		{name: "dollar dotted", expr: "$.data.id"},
		{name: "bare dotted", expr: "data.customer_id"},
		{name: "leading index", expr: "$[0]"},
		{name: "index then field", expr: "$[1].data.name"},
		{name: "empty", expr: "", wantErr: true},
		{name: "empty segment", expr: "$.data..id", wantErr: true},
		{name: "trailing dot", expr: "$.data.", wantErr: true},
		{name: "unclosed index", expr: "$[0", wantErr: true},
		{name: "negative index", expr: "$[-1]", wantErr: true},
		{name: "non-numeric index", expr: "$[x]", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePath(tt.expr)
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %q", tt.expr)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error for %q: %v", tt.expr, err)
			}
			if tt.wantErr && !errors.Is(err, ErrPathSyntax) {
				t.Errorf("error should wrap ErrPathSyntax, got %v", err)
			}
		})
	}
}

func TestPath_Extract(t *testing.T) {
	doc := testDoc()

	tests := []struct {
		name string
		expr string
		want any
	}{
		{name: "nested field", expr: "$.data.id", want: "t1"},
		{name: "bare form", expr: "data.customer_id", want: "c1"},
		{name: "number", expr: "$.data.amount", want: 42.5},
		{name: "array element", expr: "$.data.items[1]", want: "b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(doc, tt.expr)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPath_ExtractRoot(t *testing.T) {
	doc := testDoc()

	got, err := Extract(doc, "$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("expected map, got %T", got)
	}
	if _, ok := m["data"]; !ok {
		t.Error("root extraction should return the whole document")
	}
}

func TestPath_ExtractMissingField(t *testing.T) {
	doc := testDoc()

	tests := []struct {
		name string
		expr string
	}{
		{name: "unknown field", expr: "$.data.missing"},
		{name: "through scalar", expr: "$.data.id.deeper"},
		{name: "index out of range", expr: "$.data.items[5]"},
		{name: "index on map", expr: "$.data[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract(doc, tt.expr)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMissingField) {
				t.Errorf("error should wrap ErrMissingField, got %v", err)
			}

			var mfe *MissingFieldError
			if !errors.As(err, &mfe) {
				t.Fatalf("expected MissingFieldError, got %T", err)
			}
			if mfe.Path != tt.expr {
				t.Errorf("expected path %q in error, got %q", tt.expr, mfe.Path)
			}
		})
	}
}

func TestPath_ExtractFromSlice(t *testing.T) {
	doc := []any{
		map[string]any{"name": "first"},
		map[string]any{"name": "second"},
	}

	got, err := Extract(doc, "$[1].name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "second" {
		t.Errorf("expected %q, got %v", "second", got)
	}
}
