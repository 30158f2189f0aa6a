package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/azhengyongqin/transfer-hub/internal/events"
	"github.com/azhengyongqin/transfer-hub/internal/executor"
	"github.com/azhengyongqin/transfer-hub/internal/healthcheck"
	"github.com/azhengyongqin/transfer-hub/internal/middleware"
	"github.com/azhengyongqin/transfer-hub/internal/server/handler"
)

type Deps struct {
	Executor *executor.Executor
	Bridge   *events.Bridge

	// HealthChecker 健康检查器
	HealthChecker *healthcheck.HealthChecker

	// ConnectionTester 对象存储连接测试（通常就是传输能力本身）
	ConnectionTester healthcheck.ConnectionTester
}

// NewRouter 提供 Gin HTTP API
// @title Transfer-Hub API
// @version 1.0.0
// @description 后台下载任务管理服务 API
// @BasePath /api/v1
// @schemes http https
func NewRouter(deps Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())

	// 全局中间件
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.PayloadSizeLimit(middleware.MaxPayloadSize))
	r.Use(middleware.CORSMiddleware())

	// 创建各个 handler 实例
	healthHandler := handler.NewHealthHandler(deps.HealthChecker)
	taskHandler := handler.NewTaskHandler(deps.Executor)
	eventsHandler := handler.NewEventsHandler(deps.Bridge)
	connectionHandler := handler.NewConnectionHandler(deps.ConnectionTester)

	// 健康检查路由
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	// Prometheus metrics 端点
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger API 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API 路由
	api := r.Group("/api/v1")
	{
		// Task 相关路由
		api.POST("/tasks", taskHandler.StartTask)
		api.GET("/tasks", taskHandler.ListTasks)
		api.GET("/tasks/:task_id", middleware.ValidateTaskIDParam(), taskHandler.GetTask)
		api.POST("/tasks/:task_id/cancel", middleware.ValidateTaskIDParam(), taskHandler.CancelTask)
		api.DELETE("/tasks/:task_id", middleware.ValidateTaskIDParam(), taskHandler.CleanupTask)

		// 事件流
		api.GET("/events", eventsHandler.Stream)

		// 连接测试
		api.POST("/connection/test", connectionHandler.Test)
	}

	return r
}
