package engine

import "strings"

// Project применяет селектор к документу и строит новый документ.
//
// Селектор — отображение выходных ключей в значения:
//   - строка, начинающаяся с "$" — path-выражение, извлекается из документа;
//   - строка с префиксом "$$" — литерал, начинающийся с "$";
//   - map и slice обрабатываются рекурсивно;
//   - остальные значения — литералы.
//
// Project — строгая проекция: ключи, не названные в селекторе,
// в результат не попадают. Перенос полей исходного документа
// задаётся явно ("ключ": "$.ключ").
func Project(doc any, selector map[string]any) (map[string]any, error) {
	result := make(map[string]any, len(selector))

	for key, val := range selector {
		resolved, err := resolveSelectorValue(doc, val)
		if err != nil {
			return nil, err
		}
		result[key] = resolved
	}

	return result, nil
}

// resolveSelectorValue разрешает одно значение селектора против документа.
func resolveSelectorValue(doc any, val any) (any, error) {
	switch v := val.(type) {
	case string:
		if strings.HasPrefix(v, "$$") {
			return v[1:], nil
		}
		if strings.HasPrefix(v, "$") {
			return Extract(doc, v)
		}
		return v, nil

	case map[string]any:
		return Project(doc, v)

	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			resolved, err := resolveSelectorValue(doc, item)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil

	default:
		return val, nil
	}
}

// validateSelector проверяет, что все path-ссылки селектора парсятся.
// branches > 0 включает проверку позиционных ссылок "$[i]" на выход
// за количество веток (для селекторов агрегации).
func validateSelector(selector map[string]any, branches int) error {
	for _, val := range selector {
		if err := validateSelectorValue(val, branches); err != nil {
			return err
		}
	}
	return nil
}

// validateSelectorValue проверяет одно значение селектора.
func validateSelectorValue(val any, branches int) error {
	switch v := val.(type) {
	case string:
		if strings.HasPrefix(v, "$$") || !strings.HasPrefix(v, "$") {
			return nil
		}
		p, err := ParsePath(v)
		if err != nil {
			return err
		}
		if branches > 0 {
			if idx, ok := p.leadingIndex(); ok && idx >= branches {
				return ErrBranchIndex
			}
		}
		return nil

	case map[string]any:
		return validateSelector(v, branches)

	case []any:
		for _, item := range v {
			if err := validateSelectorValue(item, branches); err != nil {
				return err
			}
		}
		return nil

	default:
		return nil
	}
}
