package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TestRequestLogger はRequestLoggerミドルウェアを検証する。
func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("ステータスに応じたレベルで1行出力されること", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			status int
			level  string
		}{
			{status: http.StatusOK, level: "INFO"},
			{status: http.StatusUnauthorized, level: "WARN"},
			{status: http.StatusBadGateway, level: "ERROR"},
		}
		for _, tc := range tests {
			var buf bytes.Buffer
			router := gin.New()
			router.Use(RequestID())
			router.Use(RequestLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
			router.GET("/test", func(c *gin.Context) {
				c.Status(tc.status)
			})

			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			req.Header.Set(HeaderKeyRequestID, "req-log")
			router.ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("ログのパースに失敗: %v (%s)", err, buf.String())
			}
			if entry["level"] != tc.level {
				t.Errorf("status %d: level = %v, want %q", tc.status, entry["level"], tc.level)
			}
			if entry["status"] != float64(tc.status) {
				t.Errorf("status = %v, want %d", entry["status"], tc.status)
			}
			if entry["request_id"] != "req-log" {
				t.Errorf("request_id = %v, want %q", entry["request_id"], "req-log")
			}
		}
	})

	t.Run("認証済みリクエストではユーザーIDを出力しトークンを出力しないこと", func(t *testing.T) {
		t.Parallel()

		token := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "u-log"})

		var buf bytes.Buffer
		router := gin.New()
		router.Use(RequestLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
		router.Use(TokenAuth(NewGate(GateConfig{Secret: testSecret}, nil)))
		router.GET("/test", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		if !strings.Contains(out, `"user_id":"u-log"`) {
			t.Errorf("ログにユーザーIDが含まれるべき: %s", out)
		}
		if strings.Contains(out, token) {
			t.Errorf("ログにトークンが含まれてはならない: %s", out)
		}
	})
}
