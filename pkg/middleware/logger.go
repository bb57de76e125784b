package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger はリクエストごとに1行の構造化ログを出力するGinミドルウェアを返す。
// Authorizationヘッダーの値は出力しない。
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start),
			"request_id", GetRequestID(c),
		}
		if userID := GetUserID(c); userID != "" {
			attrs = append(attrs, "user_id", userID)
		}

		switch {
		case status >= 500:
			logger.Error("リクエスト処理に失敗", attrs...)
		case status >= 400:
			logger.Warn("リクエストを拒否", attrs...)
		default:
			logger.Info("リクエスト完了", attrs...)
		}
	}
}
