// API Gatewayサービスのエントリポイント。
// 保護されたルートでBearerトークンを検証し、受理したリクエストを下流サービスへ転送する。
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線となる。
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/tokengate/internal/config"
	"github.com/nao1215/tokengate/internal/gateway"
	"github.com/nao1215/tokengate/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Gatewayサービスが異常終了しました", "error", err)
		os.Exit(1)
	}
}

// run は設定を読み込み、シグナルを受け取るまでGatewayを動かす。
func run() error {
	cfg, err := config.Load("./config", ".")
	if err != nil {
		return fmt.Errorf("設定の読み込みに失敗: %w", err)
	}

	log := logger.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)
	gin.SetMode(cfg.Server.Mode)

	if cfg.UsingFallbackSecret() {
		log.Warn("JWT_SECRET が設定されていないため既定の秘密鍵を使用します。本番環境では必ず設定してください")
	}

	server, err := gateway.NewServer(cfg, log)
	if err != nil {
		return fmt.Errorf("Gatewayサーバーの初期化に失敗: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return err
	}
	log.Info("Gatewayサービスを停止しました")
	return nil
}
