package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateCounter 是限流所需的 Redis 命令子集。
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
}

// RateLimitMiddleware 按客户端 IP 限制每个窗口内的请求数。
// limit <= 0 时不限流；Redis 不可用时放行并记录日志。
func RateLimitMiddleware(client RateCounter, prefix string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || client == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		log := LoggerFromContext(c)
		key := fmt.Sprintf("%s:%s", prefix, c.ClientIP())

		count, err := client.Incr(ctx, key).Result()
		if err != nil {
			log.Warn("rate limit check failed, allowing request", slog.Any("error", err))
			c.Next()
			return
		}
		if count == 1 {
			if err := client.Expire(ctx, key, window).Err(); err != nil {
				log.Warn("rate limit window not armed", slog.String("key", key), slog.Any("error", err))
			}
		}
		if count > int64(limit) {
			// 首次 EXPIRE 失败的键没有过期时间，拦截时补上，避免永久封禁。
			if err := ensureTTL(ctx, client, key, window); err != nil {
				log.Warn("rate limit ttl repair failed", slog.String("key", key), slog.Any("error", err))
			}
			c.Header("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many submissions"})
			return
		}
		c.Next()
	}
}

// ensureTTL 在键存在但没有过期时间（TTL 为 -1）时重新设置窗口。
func ensureTTL(ctx context.Context, client RateCounter, key string, ttl time.Duration) error {
	remaining, err := client.TTL(ctx, key).Result()
	if err != nil {
		return err
	}
	if remaining != -1 {
		return nil
	}
	return client.Expire(ctx, key, ttl).Err()
}
