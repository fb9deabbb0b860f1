package main

import (
	"flag"
	"os"
	"strings"
	"syscall"

	"github.com/payline-next/internal/app"
	"github.com/payline-next/internal/config"
	"github.com/payline-next/internal/logger"
	"github.com/payline-next/internal/models"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()

	if cfg.Server.Mode == "release" {
		if isPlaceholderKey(cfg.Stripe.SecretKey) {
			stdLog.Fatalf("Stripe secret key 缺失或仍为占位值，请在生产环境中配置真实密钥")
		}
		if isPlaceholderKey(cfg.Stripe.WebhookSecret) {
			stdLog.Fatalf("Stripe webhook secret 缺失或仍为占位值，请在生产环境中配置真实密钥")
		}
	} else if isPlaceholderKey(cfg.Stripe.SecretKey) {
		stdLog.Printf("警告: Stripe secret key 缺失或仍为占位值，支付接口将不可用")
	}

	// 初始化数据库
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("数据库初始化失败: %v", err)
	}

	// 自动迁移数据库表
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("数据库迁移失败: %v", err)
	}

	// 设置 Gin 模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 解析命令行参数
	var mode string
	flag.StringVar(&mode, "mode", app.ModeAll, "启动模式: all (默认), api, worker")
	flag.Parse()

	if err := app.Run(app.Options{
		Config:  cfg,
		Logger:  logger.S(),
		Signals: []os.Signal{syscall.SIGINT, syscall.SIGTERM},
		Mode:    mode,
	}); err != nil {
		stdLog.Fatalf("服务运行失败: %v", err)
	}
}

func isPlaceholderKey(key string) bool {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return true
	}
	normalized := strings.ToLower(trimmed)
	if strings.Contains(normalized, "change-me") ||
		strings.Contains(normalized, "your-secret-key") ||
		strings.Contains(normalized, "placeholder") {
		return true
	}
	return false
}
