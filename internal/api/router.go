package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cvintake/internal/api/middleware"
	"cvintake/internal/config"
	"cvintake/internal/metrics"
)

// NewRouter 构建 Gin 路由引擎并挂上公共中间件、健康检查与指标端点。
func NewRouter(cfg *config.Config, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true

	router.Use(
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(logger),
		middleware.RecoveryMiddleware(),
		metrics.GinMiddleware(),
		cors.New(corsConfig(cfg.API)),
	)

	router.NoMethod(func(c *gin.Context) {
		Error(c, http.StatusMethodNotAllowed, "Method not allowed")
	})
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "Not found")
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func corsConfig(cfg config.APIConfig) cors.Config {
	corsCfg := cors.DefaultConfig()
	if origins := cfg.Origins(); len(origins) > 0 {
		corsCfg.AllowOrigins = origins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", middleware.CorrelationIDHeader}
	corsCfg.ExposeHeaders = []string{middleware.CorrelationIDHeader}
	return corsCfg
}
