package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// NewDefault 创建写入 stdout 的日志记录器。
func NewDefault(level string) *slog.Logger {
	return New(os.Stdout, level, false)
}

// NewJSON 创建 JSON 格式的日志记录器，用于生产环境。
func NewJSON(level string) *slog.Logger {
	return New(os.Stdout, level, true)
}

// New 根据级别字符串创建日志记录器。未知级别回落为 info。
func New(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel 解析 debug / info / warn / error。
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
