package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/azhengyongqin/transfer-hub/docs" // Swagger docs
	"github.com/azhengyongqin/transfer-hub/internal/cancel"
	"github.com/azhengyongqin/transfer-hub/internal/config"
	"github.com/azhengyongqin/transfer-hub/internal/events"
	"github.com/azhengyongqin/transfer-hub/internal/executor"
	"github.com/azhengyongqin/transfer-hub/internal/healthcheck"
	"github.com/azhengyongqin/transfer-hub/internal/logger"
	"github.com/azhengyongqin/transfer-hub/internal/reaper"
	"github.com/azhengyongqin/transfer-hub/internal/registry"
	httpserver "github.com/azhengyongqin/transfer-hub/internal/server"
	"github.com/azhengyongqin/transfer-hub/internal/transfer"
)

// @title Transfer-Hub API
// @version 1.0.0
// @description 后台传输任务管理服务 - 长时对象存储下载任务的启动、进度跟踪与取消
// @contact.name Transfer-Hub Support
// @license.name MIT
// @BasePath /api/v1
// @schemes http https
// @host localhost:28090

// 说明：
// - 单进程内完成 HTTP 服务、下载执行与孤儿回收，便于本地与容器部署。

func main() {
	// 初始化结构化日志（开发模式）
	if err := logger.Init(false); err != nil {
		logger.L.Fatal().Err(err).Msg("初始化日志失败")
		os.Exit(1)
	}
	defer logger.Sync()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logger.L.Fatal().Err(err).Msg("加载配置失败")
	}

	// 验证配置
	if err := cfg.Validate(); err != nil {
		logger.L.Fatal().Err(err).Msg("配置验证失败")
	}

	logger.L.Info().
		Str("http", cfg.HTTP.Addr).
		Str("bucket", cfg.S3.Bucket).
		Str("download_dir", cfg.Download.Dir).
		Msg("服务启动")

	// 确保下载目录存在
	if err := os.MkdirAll(cfg.Download.Dir, 0o755); err != nil {
		logger.L.Fatal().Err(err).Str("dir", cfg.Download.Dir).Msg("创建下载目录失败")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 对象存储传输能力
	capability, err := transfer.NewS3Capability(ctx, cfg.S3)
	if err != nil {
		logger.L.Fatal().Err(err).Msg("初始化对象存储客户端失败")
	}

	// 核心组件：任务登记表、取消控制器、事件桥
	reg := registry.New()
	ctrl := cancel.NewController()
	bridge := events.NewBridge(reg)

	// 下载执行器
	exec := executor.New(ctx, reg, ctrl, bridge, capability, cfg.Download)

	// 孤儿任务回收
	rp := reaper.New(reg, exec, bridge, cfg.Reaper)
	go rp.Run(ctx)

	// 健康检查器
	healthChecker := healthcheck.NewHealthChecker(capability, cfg.Download.Dir)

	httpSrv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpserver.NewRouter(httpserver.Deps{
			Executor:         exec,
			Bridge:           bridge,
			HealthChecker:    healthChecker,
			ConnectionTester: capability,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.L.Info().Str("addr", cfg.HTTP.Addr).Msg("HTTP 服务监听")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Fatal().Err(err).Msg("HTTP 服务错误")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	_ = httpSrv.Shutdown(shutdownCtx)

	// 给在途任务发取消信号并等待落盘
	if err := exec.Shutdown(shutdownCtx); err != nil {
		logger.L.Warn().Err(err).Msg("等待在途任务结束超时")
	}
	logger.L.Info().Msg("服务已优雅关闭")
}
