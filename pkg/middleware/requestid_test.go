package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// TestRequestID はRequestIDミドルウェアを検証する。
func TestRequestID(t *testing.T) {
	t.Parallel()

	newRouter := func(captured *string) *gin.Engine {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			*captured = GetRequestID(c)
			c.Status(http.StatusNoContent)
		})
		return router
	}

	t.Run("リクエストIDが無い場合はUUIDが生成されること", func(t *testing.T) {
		t.Parallel()

		var captured string
		w := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		if _, err := uuid.Parse(captured); err != nil {
			t.Errorf("リクエストID %q がUUIDではない: %v", captured, err)
		}
		if got := w.Header().Get(HeaderKeyRequestID); got != captured {
			t.Errorf("%s = %q, want %q", HeaderKeyRequestID, got, captured)
		}
	})

	t.Run("クライアントのリクエストIDを引き継ぐこと", func(t *testing.T) {
		t.Parallel()

		var captured string
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderKeyRequestID, "req-123")
		w := httptest.NewRecorder()
		newRouter(&captured).ServeHTTP(w, req)

		if captured != "req-123" {
			t.Errorf("GetRequestID() = %q, want %q", captured, "req-123")
		}
		if got := w.Header().Get(HeaderKeyRequestID); got != "req-123" {
			t.Errorf("%s = %q, want %q", HeaderKeyRequestID, got, "req-123")
		}
	})

	t.Run("長すぎるリクエストIDは置き換えられること", func(t *testing.T) {
		t.Parallel()

		var captured string
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(HeaderKeyRequestID, strings.Repeat("x", maxRequestIDLength+1))
		newRouter(&captured).ServeHTTP(httptest.NewRecorder(), req)

		if _, err := uuid.Parse(captured); err != nil {
			t.Errorf("リクエストID %q がUUIDではない: %v", captured, err)
		}
	})
}
