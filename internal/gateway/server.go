package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/tokengate/internal/config"
	"github.com/nao1215/tokengate/pkg/httpclient"
	"github.com/nao1215/tokengate/pkg/metrics"
	"github.com/nao1215/tokengate/pkg/middleware"
)

const (
	// shutdownTimeout はグレースフルシャットダウンの待ち時間。
	shutdownTimeout = 10 * time.Second
	// readHeaderTimeout はリクエストヘッダー読み込みのタイムアウト。
	readHeaderTimeout = 5 * time.Second
)

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はGatewayの設定。
	cfg *config.Config
	// logger は構造化ロガー。
	logger *slog.Logger
	// gate はBearerトークンの検証を行う。
	gate *middleware.Gate
	// metrics はPrometheusメトリクス。
	metrics *metrics.Metrics
	// gatherer は /metrics で公開するメトリクスの取得元。
	gatherer prometheus.Gatherer
	// upstreams は転送先の下流サービス。
	upstreams upstreams
}

// upstreams は下流サービスのクライアント。
type upstreams struct {
	Auth    *httpclient.Client
	Product *httpclient.Client
	Order   *httpclient.Client
}

// NewServer は新しいGatewayサーバーを生成する。
// メトリクスは専用のレジストリに登録する。
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return newServer(cfg, logger, reg)
}

// newServer はレジストリを指定してサーバーを生成する。
func newServer(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("設定がnilです")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定が不正です: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	timeout := cfg.Server.WriteTimeout
	s := &Server{
		router:   gin.New(),
		cfg:      cfg,
		logger:   logger,
		gate:     middleware.NewGate(cfg.GateConfig(), logger.With("component", "token_gate")),
		metrics:  metrics.New(reg),
		gatherer: reg,
		upstreams: upstreams{
			Auth:    httpclient.New("auth", cfg.Services.Auth, timeout),
			Product: httpclient.New("product", cfg.Services.Product, timeout),
			Order:   httpclient.New("order", cfg.Services.Order, timeout),
		},
	}

	s.router.Use(middleware.Recovery(logger))
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger(logger))
	s.router.Use(s.observeRequests())
	s.router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	s.setupRoutes()

	return s, nil
}

// Handler はルーティング済みのhttp.Handlerを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              net.JoinHostPort("", s.cfg.Server.Port),
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Gatewayサービスを起動します", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("Gatewayサービスの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Gatewayサービスを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("グレースフルシャットダウンに失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	// 認証エンドポイント（認証不要、auth-serviceへ転送）
	s.router.Any("/api/v1/auth/*path", s.handleForward(s.upstreams.Auth, "/api/auth"))

	// 認証必須のAPIエンドポイント
	api := s.router.Group("/api/v1")
	api.Use(middleware.TokenAuth(s.gate, middleware.WithDecisionHook(s.recordDecision)))
	{
		api.GET("/me", s.handleGetCurrentUser())

		// 商品・カート（product-serviceへ転送）
		api.Any("/products", s.handleForward(s.upstreams.Product, "/api/products"))
		api.Any("/products/*path", s.handleForward(s.upstreams.Product, "/api/products"))
		api.Any("/carts", s.handleForward(s.upstreams.Product, "/api/carts"))
		api.Any("/carts/*path", s.handleForward(s.upstreams.Product, "/api/carts"))

		// 注文（order-serviceへ転送）
		api.Any("/orders", s.handleForward(s.upstreams.Order, "/api/orders"))
		api.Any("/orders/*path", s.handleForward(s.upstreams.Order, "/api/orders"))
	}
}

// recordDecision はGateの判定をメトリクスとログに記録する。
func (s *Server) recordDecision(c *gin.Context, d middleware.Decision) {
	s.metrics.ObserveDecision(d.Kind.String())
	if d.Admitted() {
		return
	}

	attrs := []any{
		"kind", d.Kind.String(),
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"request_id", middleware.GetRequestID(c),
	}
	if d.Cause != nil {
		attrs = append(attrs, "cause", d.Cause.Error())
	}
	s.logger.Warn("認証に失敗しました", attrs...)
}

// observeRequests はリクエスト数をメトリクスに記録するミドルウェアを返す。
func (s *Server) observeRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.metrics.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status())
	}
}

// handleGetCurrentUser は認証済みユーザーのクレームを返すハンドラを返す。
func (s *Server) handleGetCurrentUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middleware.ClaimsFrom(c)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"message": middleware.KindMissingToken.Message()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"user_id": middleware.GetUserID(c),
			"claims":  claims,
		})
	}
}

// handleForward は下流サービスにリクエストを転送するハンドラを返す。
// ワイルドカード "path" の値をupstreamPrefixの後ろに連結する。
func (s *Server) handleForward(client *httpclient.Client, upstreamPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := upstreamPrefix + c.Param("path")

		ctx := httpclient.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))
		if userID := middleware.GetUserID(c); userID != "" {
			ctx = httpclient.WithUserID(ctx, userID)
		}

		resp, err := client.Forward(ctx, c.Request.Method, path, c.Request.URL.RawQuery, c.Request.Header, c.Request.Body)
		if err != nil {
			s.metrics.ObserveUpstreamError(client.Name())
			s.logger.Error("下流サービスへの転送に失敗",
				"service", client.Name(),
				"path", path,
				"request_id", middleware.GetRequestID(c),
				"error", err,
			)
			c.JSON(http.StatusBadGateway, gin.H{"message": "Service indisponible"})
			return
		}
		defer resp.Body.Close()

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/json"
		}
		c.DataFromReader(resp.StatusCode, resp.ContentLength, contentType, resp.Body, nil)
	}
}
