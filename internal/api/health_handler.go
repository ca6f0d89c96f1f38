package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthHandler 返回进程存活时间。
type HealthHandler struct {
	startedAt time.Time
	now       func() time.Time
}

func NewHealthHandler(startedAt time.Time) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, now: time.Now}
}

func (h *HealthHandler) Health(c *gin.Context) {
	now := h.now()
	c.JSON(http.StatusOK, gin.H{
		"uptime":    now.Sub(h.startedAt).Seconds(),
		"message":   "OK",
		"timestamp": now.UnixMilli(),
	})
}
