package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"cvintake/internal/config"
	"cvintake/internal/database"
	"cvintake/internal/mailer"
	"cvintake/internal/metrics"
	"cvintake/internal/tasks"
	"cvintake/internal/worker"
)

// 指标端口与 API 分开，避免两个进程争用。
const metricsAddr = ":9091"

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	transport, err := mailer.NewSMTPTransport(cfg.Mail)
	if err != nil {
		log.Fatalf("init smtp transport: %v", err)
	}
	mail := mailer.New(transport, cfg.Mail.FromName, cfg.Mail.User)

	var ledger worker.FollowUpLedger
	if cfg.Ledger.Enabled {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("init database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("auto migrate: %v", err)
		}
		ledger = database.NewLedger(db)
		logger.Info("database connection ready for worker")
	}

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Logger:      newAsynqLogger(logger),
	})

	followUpHandler := worker.NewFollowUpTaskHandler(mail, ledger, logger)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeFollowUpEmail, followUpHandler)

	go func() {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(metricsAddr, metricsMux); err != nil {
			logger.Error("metrics server stopped", slog.Any("error", err))
		}
	}()

	logger.Info("worker service started",
		slog.String("redis_addr", redisAddr),
		slog.Int("concurrency", cfg.Worker.Concurrency),
	)
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
