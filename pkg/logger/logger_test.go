package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// TestParseLevel はParseLevelを検証する。
func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "info", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "verbose", want: slog.LevelInfo},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

// TestNew はNewで生成したロガーの出力形式を検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("json形式ではJSONで出力されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		New(&buf, "info", "json").Info("起動", "port", "8080")

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("JSONのパースに失敗: %v (%s)", err, buf.String())
		}
		if entry["msg"] != "起動" {
			t.Errorf("msg = %v, want %q", entry["msg"], "起動")
		}
		if entry["service"] != "gateway" {
			t.Errorf("service = %v, want %q", entry["service"], "gateway")
		}
	})

	t.Run("text形式ではkey=valueで出力されること", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		New(&buf, "info", "text").Info("起動", "port", "8080")

		if !strings.Contains(buf.String(), "port=8080") {
			t.Errorf("出力 = %q, port=8080 を含むべき", buf.String())
		}
	})

	t.Run("レベル未満のログは出力されないこと", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		New(&buf, "warn", "text").Info("出力されない")

		if buf.Len() != 0 {
			t.Errorf("出力 = %q, want empty", buf.String())
		}
	})
}
