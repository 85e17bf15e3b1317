// Package main はサンドボックス決済プラットフォームのエントリポイント。
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"card-registration-kit/config"
	"card-registration-kit/internal/handler"
	"card-registration-kit/internal/infra"
	"card-registration-kit/internal/repository"
	"card-registration-kit/internal/usecase"
	"card-registration-kit/migrations"
)

const version = "1.0.0"

func main() {
	ctx := context.Background()

	// .envファイルを読み込む（存在しない場合は無視）
	// 既存の環境変数は上書きしない
	_ = godotenv.Load()

	cfg := config.Load()

	// トレーサー初期化（ロガー設定の前に実行）
	shutdownTracer, err := infra.InitTracer(ctx, cfg, infra.Component{Name: "card-sandbox", Version: version})
	if err != nil {
		slog.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracer(ctx); err != nil {
			slog.Error("failed to shutdown tracer", "error", err)
		}
	}()

	infra.SetupLogger(cfg, os.Stdout)

	// DB初期化
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is not set")
		os.Exit(1)
	}
	db, err := infra.NewDB(cfg.DatabaseURL, cfg)
	if err != nil {
		slog.Error("failed to init database", "error", err)
		os.Exit(1)
	}

	// スキーマ適用
	migrator := usecase.NewMigrationService(repository.NewMigrationRepository(db), migrations.FS)
	applied, err := migrator.ApplyMigrations(ctx)
	if err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations checked", "applied", applied)

	// 封印方式の選択
	var sealer usecase.Sealer
	if cfg.KMSKeyName != "" {
		kmsSealer, err := infra.NewKMSSealer(ctx, cfg.KMSKeyName)
		if err != nil {
			slog.Error("failed to init KMS client", "error", err)
			os.Exit(1)
		}
		defer func() {
			if closeErr := kmsSealer.Close(); closeErr != nil {
				slog.Error("failed to close KMS client", "error", closeErr)
			}
		}()
		sealer = kmsSealer
	} else {
		localSealer, err := infra.NewLocalSealer(cfg.SandboxSealKey)
		if err != nil {
			slog.Error("failed to init local sealer", "error", err)
			os.Exit(1)
		}
		if cfg.SandboxSealKey == "" {
			slog.Warn("SANDBOX_SEAL_KEY is not set, using an ephemeral key")
		}
		sealer = localSealer
	}

	// DI
	repo := repository.NewPreregistrationRepository(db)
	service := usecase.NewSandboxService(repo, sealer, cfg.SandboxPublicURL)
	metrics := infra.NewMetrics(prometheus.DefaultRegisterer)
	h := handler.NewSandboxHandler(service, metrics)
	router := handler.NewRouter(h, promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		<-sigCh

		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("starting sandbox", "port", cfg.Port, "public_url", cfg.SandboxPublicURL)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
