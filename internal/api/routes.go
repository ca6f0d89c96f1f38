package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"cvintake/internal/api/middleware"
)

const submitRateWindow = time.Hour

// Handlers 汇总路由需要的处理器与依赖。Submissions、RateCounter 可以为 nil。
type Handlers struct {
	Submit          *SubmitHandler
	Health          *HealthHandler
	Submissions     *SubmissionsHandler
	RateCounter     middleware.RateCounter
	SubmitRateLimit int
	InternalSecret  string
}

// RegisterRoutes 注册投递、健康检查与内部查询路由。
func RegisterRoutes(router *gin.Engine, h Handlers) {
	limit := middleware.RateLimitMiddleware(h.RateCounter, "cvintake:ratelimit:submit", h.SubmitRateLimit, submitRateWindow)

	router.POST("/submit", limit, h.Submit.Submit)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/health", h.Health.Health)
		apiGroup.POST("/submit", limit, h.Submit.Submit)
	}

	if h.Submissions != nil {
		internal := router.Group("/internal")
		internal.Use(middleware.InternalSecretMiddleware(h.InternalSecret))
		{
			internal.GET("/submissions", h.Submissions.List)
		}
	}
}
