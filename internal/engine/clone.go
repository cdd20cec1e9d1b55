package engine

// Clone возвращает глубокую копию документа.
//
// Используется для copy-on-fanout: каждая ветка parallel узла получает
// собственную копию контекста, поэтому ветки не наблюдают мутации
// друг друга и общий изменяемый контекст отсутствует.
func Clone(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	return cloneValue(doc).(map[string]any)
}

// cloneValue копирует значение рекурсивно.
// Скаляры возвращаются как есть: после json.Unmarshal они неизменяемы.
func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, item := range v {
			result[key] = cloneValue(item)
		}
		return result

	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = cloneValue(item)
		}
		return result

	default:
		return val
	}
}
