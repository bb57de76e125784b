package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	// headerKeyUserID はサービス間でユーザーIDを伝播するためのHTTPヘッダーキー。
	headerKeyUserID = "X-User-ID"
	// contextKeyClaims はGinコンテキストにクレームを格納するキー。
	contextKeyClaims = "claims"
	// contextKeyUserID はGinコンテキストにユーザーIDを格納するキー。
	contextKeyUserID = "user_id"
)

// claimsKey はcontext.Contextにクレームを格納するためのキー型。
type claimsKey struct{}

// AuthOption はTokenAuthの挙動を変更するオプション。
type AuthOption func(*authOptions)

type authOptions struct {
	hooks []func(*gin.Context, Decision)
}

// WithDecisionHook はGateの判定ごとに呼ばれるフックを登録する。
// メトリクスの記録など、判定結果を観測したい場合に使う。
func WithDecisionHook(hook func(*gin.Context, Decision)) AuthOption {
	return func(o *authOptions) {
		o.hooks = append(o.hooks, hook)
	}
}

// TokenAuth はGateでBearerトークンを検証するGinミドルウェアを返す。
// 拒否した場合は401と {"message": ...} を返して後続のハンドラを実行しない。
// 受理した場合はクレームとユーザーIDをコンテキストに設定する。
func TokenAuth(gate *Gate, opts ...AuthOption) gin.HandlerFunc {
	o := &authOptions{}
	for _, opt := range opts {
		opt(o)
	}

	return func(c *gin.Context) {
		decision := gate.Authenticate(c.Request.Header)
		for _, hook := range o.hooks {
			hook(c, decision)
		}

		if !decision.Admitted() {
			c.Header("WWW-Authenticate", `Bearer realm="api"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": decision.Kind.Message(),
			})
			return
		}

		claims := decision.Claims
		userID := claims.UserID()

		c.Set(contextKeyClaims, claims)
		c.Set(contextKeyUserID, userID)
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Request.Header.Set(headerKeyUserID, userID)
		c.Next()
	}
}

// WithClaims はcontext.Contextにクレームを設定する。
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext はcontext.Contextからクレームを取得する。
// TokenAuthを通過していないリクエストではnilを返す。
func ClaimsFromContext(ctx context.Context) Claims {
	if claims, ok := ctx.Value(claimsKey{}).(Claims); ok {
		return claims
	}
	return nil
}

// ClaimsFrom はGinコンテキストからクレームを取得する。
func ClaimsFrom(c *gin.Context) Claims {
	v, ok := c.Get(contextKeyClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(Claims)
	return claims
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// TokenAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get(contextKeyUserID)
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}
