package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout は下流サービス呼び出しの既定タイムアウト。
const DefaultTimeout = 30 * time.Second

// forwardedHeaders は下流サービスへそのまま引き継ぐヘッダー。
var forwardedHeaders = []string{"Authorization", "Content-Type", "Accept", "Accept-Language"}

// Client は1つの下流サービスへの転送を行うHTTPクライアント。
type Client struct {
	// httpClient は内部で使用するHTTPクライアント。
	httpClient *http.Client
	// name はメトリクスやログで使うサービス名。
	name string
	// baseURL は接続先サービスのベースURL。
	baseURL string
}

// New は新しい転送用HTTPクライアントを生成する。
// baseURLには接続先サービスのベースURL（例: "http://product-service:3002"）を指定する。
// timeoutが0以下の場合はDefaultTimeoutを使う。
func New(name, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name はサービス名を返す。
func (c *Client) Name() string {
	return c.name
}

// Forward はmethodとpathで下流サービスへリクエストを送り、レスポンスをそのまま返す。
// 呼び出し側がレスポンスボディを閉じること。
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	url := c.baseURL + path
	if rawQuery != "" {
		url += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗: %w", err)
	}

	for _, key := range forwardedHeaders {
		if v := header.Get(key); v != "" {
			req.Header.Set(key, v)
		}
	}

	// コンテキストからユーザーIDとリクエストIDを伝播する
	if userID, ok := ctx.Value(contextKeyUserID).(string); ok && userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if requestID, ok := ctx.Value(contextKeyRequestID).(string); ok && requestID != "" {
		req.Header.Set("X-Request-ID", requestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%sへのリクエスト送信に失敗: %w", c.name, err)
	}
	return resp, nil
}

// contextKey はコンテキストキーの型。
type contextKey string

const (
	// contextKeyUserID はコンテキストにユーザーIDを格納するためのキー。
	contextKeyUserID contextKey = "user_id"
	// contextKeyRequestID はコンテキストにリクエストIDを格納するためのキー。
	contextKeyRequestID contextKey = "request_id"
)

// WithUserID はコンテキストにユーザーIDを設定する。
// サービス間通信時にユーザーIDを伝播するために使用する。
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// WithRequestID はコンテキストにリクエストIDを設定する。
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
