package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// Path — скомпилированное path-выражение.
//
// Поддерживаемый синтаксис:
//
//	$                — весь документ
//	$.data.id        — вложенное поле
//	$[0].name        — индекс в массиве, затем поле
//	data.customer_id — сокращённая форма без "$"
//
// Path парсится один раз (при валидации definition) и далее
// используется для извлечения значений без повторного разбора.
type Path struct {
	raw  string
	segs []segment
}

// segment — один сегмент path-выражения: ключ или индекс.
type segment struct {
	key     string
	index   int
	isIndex bool
}

// String возвращает исходное выражение.
func (p *Path) String() string {
	return p.raw
}

// ParsePath парсит path-выражение.
// Возвращает ErrPathSyntax при некорректном синтаксисе.
func ParsePath(expr string) (*Path, error) {
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrPathSyntax)
	}

	rest := expr
	if strings.HasPrefix(rest, "$") {
		rest = rest[1:]
	} else {
		// Сокращённая форма: "a.b" эквивалентна "$.a.b"
		rest = "." + rest
	}

	p := &Path{raw: expr}

	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end == -1 {
				end = len(rest)
			}
			key := rest[:end]
			if key == "" {
				return nil, fmt.Errorf("%w: empty segment in %q", ErrPathSyntax, expr)
			}
			p.segs = append(p.segs, segment{key: key})
			rest = rest[end:]

		case '[':
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return nil, fmt.Errorf("%w: unclosed index in %q", ErrPathSyntax, expr)
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("%w: bad index %q in %q", ErrPathSyntax, rest[1:end], expr)
			}
			p.segs = append(p.segs, segment{index: idx, isIndex: true})
			rest = rest[end+1:]

		default:
			return nil, fmt.Errorf("%w: unexpected %q in %q", ErrPathSyntax, rest[0], expr)
		}
	}

	return p, nil
}

// MustParsePath парсит выражение и паникует при ошибке.
// Используется для статических определений и тестов.
func MustParsePath(expr string) *Path {
	p, err := ParsePath(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// Extract извлекает значение из документа по path-выражению.
//
// Документ — JSON-подобная структура (map[string]any, []any, скаляры).
// Ссылка на отсутствующее поле возвращает MissingFieldError
// (errors.Is(err, ErrMissingField) == true). Умолчаний engine не делает:
// решение о fallback принимает вызывающая сторона.
func (p *Path) Extract(doc any) (any, error) {
	cur := doc

	for _, seg := range p.segs {
		if seg.isIndex {
			arr, ok := cur.([]any)
			if !ok || seg.index >= len(arr) {
				return nil, &MissingFieldError{Path: p.raw, Segment: "[" + strconv.Itoa(seg.index) + "]"}
			}
			cur = arr[seg.index]
			continue
		}

		m, ok := cur.(map[string]any)
		if !ok {
			return nil, &MissingFieldError{Path: p.raw, Segment: seg.key}
		}
		val, ok := m[seg.key]
		if !ok {
			return nil, &MissingFieldError{Path: p.raw, Segment: seg.key}
		}
		cur = val
	}

	return cur, nil
}

// leadingIndex возвращает индекс первого сегмента, если он индексный.
// Используется валидацией селекторов агрегации ("$[0]", "$[1]", ...).
func (p *Path) leadingIndex() (int, bool) {
	if len(p.segs) == 0 || !p.segs[0].isIndex {
		return 0, false
	}
	return p.segs[0].index, true
}

// Extract — удобная форма: парсит выражение и извлекает значение.
func Extract(doc any, expr string) (any, error) {
	p, err := ParsePath(expr)
	if err != nil {
		return nil, err
	}
	return p.Extract(doc)
}
