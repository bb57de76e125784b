package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// headerKeyAuthorization は認証トークンを運ぶHTTPヘッダーキー。
const headerKeyAuthorization = "Authorization"

// ErrorKind はトークン検証が拒否された理由の分類。
type ErrorKind int

const (
	// KindNone は拒否されていない（受理された）ことを表す。
	KindNone ErrorKind = iota
	// KindMissingToken はAuthorizationヘッダーが存在しないことを表す。
	KindMissingToken
	// KindMalformedToken はヘッダーからトークンを取り出せないことを表す。
	KindMalformedToken
	// KindInvalidToken は署名・有効期限・アルゴリズム等の検証に失敗したことを表す。
	KindInvalidToken
)

// String はログやメトリクスのラベルに使う安定した名前を返す。
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "admitted"
	case KindMissingToken:
		return "missing_token"
	case KindMalformedToken:
		return "malformed_token"
	case KindInvalidToken:
		return "invalid_token"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Message はクライアントに返すメッセージを返す。
// 秘密鍵やトークン本体、内部エラーの詳細は含めない。
func (k ErrorKind) Message() string {
	switch k {
	case KindMissingToken:
		return "Token manquant"
	case KindMalformedToken:
		return "Token malformé"
	default:
		return "Token invalide"
	}
}

// Claims は検証済みトークンのペイロード。
type Claims map[string]any

// Subject は "sub" クレームを返す。存在しない場合は空文字列。
func (c Claims) Subject() string {
	s, _ := c["sub"].(string)
	return s
}

// UserID はユーザー識別子として使えるクレームを順に探して返す。
// auth-serviceの発行するトークンは "userId" を使うため、"sub" の次に参照する。
func (c Claims) UserID() string {
	for _, key := range []string{"sub", "userId", "user_id", "id"} {
		if s, ok := c[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// Decision はGateの判定結果。Kind が KindNone の場合のみ受理を意味する。
type Decision struct {
	// Claims は受理された場合のみ設定される。
	Claims Claims
	// Kind は拒否理由。受理時は KindNone。
	Kind ErrorKind
	// Cause は KindInvalidToken の根本原因。ログ専用でクライアントには返さない。
	Cause error
}

// Admitted はリクエストが受理されたかを返す。
func (d Decision) Admitted() bool {
	return d.Kind == KindNone && d.Claims != nil
}

// Logger はGateが診断情報を出力するためのインターフェース。
// *slog.Logger はこのインターフェースを満たす。
type Logger interface {
	Debug(msg string, args ...any)
}

// nopLogger は何も出力しないLogger。
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}

// GateConfig はGateの構成。
type GateConfig struct {
	// Secret はHMAC署名の検証に使う共有秘密鍵。
	Secret string
	// Leeway は exp / nbf / iat の検証で許容する時刻のずれ。
	Leeway time.Duration
	// RequireExpiration が true の場合、exp クレームのないトークンを拒否する。
	RequireExpiration bool
	// Now は検証時刻を返す。nil の場合は time.Now。
	Now func() time.Time
}

// Gate はリクエストヘッダーからBearerトークンを取り出して検証する。
// 共有秘密鍵以外の状態を持たないため、並行して呼び出してよい。
type Gate struct {
	key    []byte
	parser *jwt.Parser
	logger Logger
}

// NewGate は新しいGateを生成する。loggerがnilの場合はログを出力しない。
func NewGate(cfg GateConfig, logger Logger) *Gate {
	if logger == nil {
		logger = nopLogger{}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{
			jwt.SigningMethodHS256.Alg(),
			jwt.SigningMethodHS384.Alg(),
			jwt.SigningMethodHS512.Alg(),
		}),
		jwt.WithIssuedAt(),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.RequireExpiration {
		opts = append(opts, jwt.WithExpirationRequired())
	}
	if cfg.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(cfg.Now))
	}

	return &Gate{
		key:    []byte(cfg.Secret),
		parser: jwt.NewParser(opts...),
		logger: logger,
	}
}

// Authenticate はヘッダーを検査して受理または拒否を判定する。
// 同じヘッダーと秘密鍵に対しては常に同じ判定を返す。
func (g *Gate) Authenticate(header http.Header) Decision {
	value := header.Get(headerKeyAuthorization)
	if value == "" {
		g.logger.Debug("Authorizationヘッダーがありません", "kind", KindMissingToken.String())
		return Decision{Kind: KindMissingToken}
	}

	fields := strings.Fields(value)
	if len(fields) < 2 {
		g.logger.Debug("Authorizationヘッダーにトークンがありません", "kind", KindMalformedToken.String())
		return Decision{Kind: KindMalformedToken}
	}
	tokenString := fields[1]

	claims := jwt.MapClaims{}
	token, err := g.parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return g.key, nil
	})
	if err == nil && !token.Valid {
		err = jwt.ErrTokenUnverifiable
	}
	if err != nil {
		g.logger.Debug("トークンの検証に失敗", "kind", KindInvalidToken.String(), "cause", err.Error())
		return Decision{Kind: KindInvalidToken, Cause: fmt.Errorf("トークンの検証に失敗: %w", err)}
	}

	return Decision{Claims: Claims(claims)}
}
