package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvintake",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时分布（秒）。投递请求包含上传、抽取与发信，桶上限放宽到 30 秒。",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path", "status"},
	)

	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cvintake",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP 请求总数。",
		},
		[]string{"method", "path", "status"},
	)

	requestBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cvintake",
			Subsystem: "http",
			Name:      "request_size_bytes",
			Help:      "请求体大小分布，主要反映简历文件大小。",
			Buckets:   prometheus.ExponentialBuckets(16<<10, 2, 10),
		},
		[]string{"path"},
	)
)

// GinMiddleware 为 Gin 路由注册 Prometheus 指标采集逻辑，/metrics 自身不计入。
func GinMiddleware() gin.HandlerFunc {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestDuration, requestTotal, requestBytes)
	})

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "/metrics" {
			c.Next()
			return
		}
		if path == "" {
			path = "unmatched"
		}

		start := time.Now()
		c.Next()

		labels := prometheus.Labels{
			"method": c.Request.Method,
			"path":   path,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		requestDuration.With(labels).Observe(time.Since(start).Seconds())
		requestTotal.With(labels).Inc()
		if c.Request.ContentLength > 0 {
			requestBytes.WithLabelValues(path).Observe(float64(c.Request.ContentLength))
		}
	}
}
