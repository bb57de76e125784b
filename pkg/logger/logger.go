// Package logger はサービス全体で使用するslogロガーを構築する。
package logger

import (
	"io"
	"log/slog"
	"strings"
)

const (
	// FormatJSON はJSON形式で出力する指定。
	FormatJSON = "json"
	// FormatText はkey=value形式で出力する指定。
	FormatText = "text"
)

// New はレベルと形式を指定してロガーを生成する。
// 未知のレベルはinfo、未知の形式はtextとして扱う。
func New(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, FormatJSON) {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", "gateway")
}

// ParseLevel は文字列のログレベルをslog.Levelに変換する。
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
