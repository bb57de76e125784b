package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderKeyRequestID はリクエストを追跡するためのHTTPヘッダーキー。
	HeaderKeyRequestID = "X-Request-ID"
	// contextKeyRequestID はGinコンテキストにリクエストIDを格納するキー。
	contextKeyRequestID = "request_id"
	// maxRequestIDLength は受け入れるリクエストIDの最大長。
	maxRequestIDLength = 128
)

// RequestID はリクエストIDを付与するGinミドルウェアを返す。
// クライアントから妥当な X-Request-ID が渡された場合はそれを引き継ぎ、
// それ以外はUUIDを生成する。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderKeyRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}

		c.Set(contextKeyRequestID, id)
		c.Request.Header.Set(HeaderKeyRequestID, id)
		c.Header(HeaderKeyRequestID, id)
		c.Next()
	}
}

// GetRequestID はGinコンテキストからリクエストIDを取得する。
func GetRequestID(c *gin.Context) string {
	if v, ok := c.Get(contextKeyRequestID); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
