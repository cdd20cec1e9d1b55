package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Template — скомпилированный строковый шаблон с path-ссылками.
//
// Шаблон состоит из литерального текста и ссылок в фигурных скобках:
//
//	"Hi {customer.data.name}, your key is: {license.data.attributes.key}"
//	"/customers/{data.customer_id}"
//
// При рендеринге значения ссылок конкатенируются с литералами
// в строковой форме. "{{" и "}}" экранируют литеральные скобки.
type Template struct {
	raw   string
	parts []templatePart
}

// templatePart — литерал либо path-ссылка.
type templatePart struct {
	lit  string
	path *Path
}

// String возвращает исходный шаблон.
func (t *Template) String() string {
	return t.raw
}

// ParseTemplate парсит шаблон.
// Возвращает ErrTemplateSyntax при несбалансированных скобках
// и ErrPathSyntax при некорректной ссылке.
func ParseTemplate(s string) (*Template, error) {
	t := &Template{raw: s}
	var lit strings.Builder

	rest := s
	for len(rest) > 0 {
		switch {
		case strings.HasPrefix(rest, "{{"):
			lit.WriteByte('{')
			rest = rest[2:]

		case strings.HasPrefix(rest, "}}"):
			lit.WriteByte('}')
			rest = rest[2:]

		case rest[0] == '{':
			end := strings.IndexByte(rest, '}')
			if end == -1 {
				return nil, fmt.Errorf("%w: unclosed reference in %q", ErrTemplateSyntax, s)
			}
			path, err := ParsePath(rest[1:end])
			if err != nil {
				return nil, err
			}
			if lit.Len() > 0 {
				t.parts = append(t.parts, templatePart{lit: lit.String()})
				lit.Reset()
			}
			t.parts = append(t.parts, templatePart{path: path})
			rest = rest[end+1:]

		case rest[0] == '}':
			return nil, fmt.Errorf("%w: unexpected %q in %q", ErrTemplateSyntax, '}', s)

		default:
			lit.WriteByte(rest[0])
			rest = rest[1:]
		}
	}

	if lit.Len() > 0 {
		t.parts = append(t.parts, templatePart{lit: lit.String()})
	}

	return t, nil
}

// MustParseTemplate парсит шаблон и паникует при ошибке.
// Используется для статических определений и тестов.
func MustParseTemplate(s string) *Template {
	t, err := ParseTemplate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Render рендерит шаблон против документа.
// Ссылка на отсутствующее поле возвращает ErrMissingField.
func (t *Template) Render(doc any) (string, error) {
	var buf strings.Builder

	for _, part := range t.parts {
		if part.path == nil {
			buf.WriteString(part.lit)
			continue
		}

		val, err := part.path.Extract(doc)
		if err != nil {
			return "", err
		}
		buf.WriteString(stringify(val))
	}

	return buf.String(), nil
}

// Render — удобная форма: парсит шаблон и рендерит против документа.
func Render(tmpl string, doc any) (string, error) {
	t, err := ParseTemplate(tmpl)
	if err != nil {
		return "", err
	}
	return t.Render(doc)
}

// stringify возвращает строковую форму значения для подстановки.
func stringify(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		// map, slice и прочие составные типы — JSON
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
