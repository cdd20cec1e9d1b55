package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// LogLevel определяет уровень логирования из переменной LOG_LEVEL.
// Возможные значения: DEBUG, INFO, WARN, ERROR (регистр не важен).
// По умолчанию: INFO
func LogLevel() slog.Level {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger инициализирует глобальный логгер.
//
// Формат вывода определяется переменной LOG_FORMAT:
//   - "json" (по умолчанию) — JSON формат для production
//   - "text" — человекочитаемый формат для разработки
func SetupLogger() *slog.Logger {
	level := LogLevel()
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	var handler slog.Handler
	if os.Getenv("LOG_FORMAT") == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}

// Хелперы ниже задают единые имена атрибутов: run_id, node_id и
// workflow пишутся одинаково во всех пакетах, чтобы логи одного run
// склеивались фильтром по атрибуту.

// WithRunID возвращает логгер с добавленным run_id.
func WithRunID(logger *slog.Logger, runID string) *slog.Logger {
	return logger.With("run_id", runID)
}

// WithNodeID возвращает логгер с добавленным node_id.
func WithNodeID(logger *slog.Logger, nodeID string) *slog.Logger {
	return logger.With("node_id", nodeID)
}

// WithWorkflow возвращает логгер с добавленным workflow.
func WithWorkflow(logger *slog.Logger, workflow string) *slog.Logger {
	return logger.With("workflow", workflow)
}
