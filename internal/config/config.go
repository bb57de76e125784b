// Package config はGatewayの設定を環境変数と設定ファイルから読み込む。
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/nao1215/tokengate/pkg/middleware"
)

// DefaultJWTSecret は JWT_SECRET が設定されていない場合に使う共有秘密鍵。
// 既存のauth-serviceとの互換のために残している既定値であり、本番では必ず上書きすること。
const DefaultJWTSecret = "efrei_super_pass"

var (
	// ErrEmptyPort はリッスンポートが空であることを表す。
	ErrEmptyPort = errors.New("ポートが設定されていません")
	// ErrInvalidTimeout はタイムアウトが0以下であることを表す。
	ErrInvalidTimeout = errors.New("タイムアウトは正の値である必要があります")
	// ErrInvalidMode はGinの動作モードが不正であることを表す。
	ErrInvalidMode = errors.New("動作モードは debug / release / test のいずれかである必要があります")
	// ErrInvalidServiceURL は下流サービスのURLが不正であることを表す。
	ErrInvalidServiceURL = errors.New("サービスURLが不正です")
)

// Config はGatewayの設定。
type Config struct {
	Server   ServerConfig  `mapstructure:"server"`
	JWT      JWTConfig     `mapstructure:"jwt"`
	Log      LogConfig     `mapstructure:"log"`
	CORS     CORSConfig    `mapstructure:"cors"`
	Services ServiceConfig `mapstructure:"services"`
}

// ServerConfig はHTTPサーバーの設定。
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// JWTConfig はトークン検証の設定。
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Leeway     time.Duration `mapstructure:"leeway"`
	RequireExp bool          `mapstructure:"require_exp"`
}

// LogConfig はログ出力の設定。
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig はCORSの設定。
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServiceConfig は転送先の下流サービスのベースURL。
type ServiceConfig struct {
	Auth    string `mapstructure:"auth"`
	Product string `mapstructure:"product"`
	Order   string `mapstructure:"order"`
}

// envBindings は設定キーと環境変数名の対応。
var envBindings = map[string]string{
	"server.port":          "PORT",
	"server.mode":          "GIN_MODE",
	"server.read_timeout":  "SERVER_READ_TIMEOUT",
	"server.write_timeout": "SERVER_WRITE_TIMEOUT",
	"jwt.secret":           "JWT_SECRET",
	"jwt.leeway":           "JWT_LEEWAY",
	"jwt.require_exp":      "JWT_REQUIRE_EXP",
	"log.level":            "LOG_LEVEL",
	"log.format":           "LOG_FORMAT",
	"cors.allowed_origins": "CORS_ALLOWED_ORIGINS",
	"services.auth":        "AUTH_SERVICE_URL",
	"services.product":     "PRODUCT_SERVICE_URL",
	"services.order":       "ORDER_SERVICE_URL",
}

// setDefaults は全設定キーの既定値を登録する。
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("jwt.secret", DefaultJWTSecret)
	v.SetDefault("jwt.leeway", time.Duration(0))
	v.SetDefault("jwt.require_exp", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("services.auth", "http://localhost:3001")
	v.SetDefault("services.product", "http://localhost:3002")
	v.SetDefault("services.order", "http://localhost:3003")
}

// Load は設定を読み込む。優先順位は環境変数、設定ファイル、既定値の順。
// 設定ファイル（config.yaml）はconfigDirsから探し、見つからなくてもエラーにしない。
func Load(configDirs ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("環境変数 %s のバインドに失敗: %w", env, err)
		}
	}

	if len(configDirs) > 0 {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range configDirs {
			v.AddConfigPath(dir)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定のデコードに失敗: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize は空白や空要素を取り除き、空の秘密鍵を既定値に置き換える。
func (c *Config) normalize() {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		c.JWT.Secret = DefaultJWTSecret
	}

	origins := make([]string, 0, len(c.CORS.AllowedOrigins))
	for _, o := range c.CORS.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORS.AllowedOrigins = origins
}

// Validate は設定値を検証する。
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Port) == "" {
		return ErrEmptyPort
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return ErrInvalidTimeout
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Server.Mode)
	}
	for name, raw := range map[string]string{
		"auth":    c.Services.Auth,
		"product": c.Services.Product,
		"order":   c.Services.Order,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %s=%q", ErrInvalidServiceURL, name, raw)
		}
	}
	return nil
}

// UsingFallbackSecret は既定の秘密鍵を使っているかを返す。
func (c *Config) UsingFallbackSecret() bool {
	return c.JWT.Secret == DefaultJWTSecret
}

// GateConfig はトークン検証用のGate設定を返す。
func (c *Config) GateConfig() middleware.GateConfig {
	return middleware.GateConfig{
		Secret:            c.JWT.Secret,
		Leeway:            c.JWT.Leeway,
		RequireExpiration: c.JWT.RequireExp,
	}
}
