package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"cvintake/internal/api"
	"cvintake/internal/config"
	"cvintake/internal/database"
	"cvintake/internal/extract"
	"cvintake/internal/intake"
	"cvintake/internal/mailer"
	"cvintake/internal/notify"
	"cvintake/internal/scan"
	"cvintake/internal/sheets"
	"cvintake/internal/storage"
	"cvintake/internal/tasks"
)

func main() {
	startedAt := time.Now()
	_ = godotenv.Load()

	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	storageClient, err := storage.NewClient(cfg.Storage)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.Storage.Bucket))

	appender, err := sheets.NewAppender(ctx, cfg.Sheets)
	if err != nil {
		log.Fatalf("init sheets backend: %v", err)
	}
	logger.Info("sheets backend ready", slog.String("backend", cfg.Sheets.Backend))

	transport, err := mailer.NewSMTPTransport(cfg.Mail)
	if err != nil {
		log.Fatalf("init smtp transport: %v", err)
	}
	mail := mailer.New(transport, cfg.Mail.FromName, cfg.Mail.User)

	loc, err := cfg.FollowUp.Location()
	if err != nil {
		log.Fatalf("load follow-up timezone: %v", err)
	}

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	deps := intake.Deps{
		Store:         storageClient,
		Extractor:     extract.NewSectionExtractor(logger),
		Appender:      appender,
		Mailer:        mail,
		FollowUps:     tasks.NewFollowUpScheduler(asynqClient, loc, cfg.FollowUp.Hour),
		WebhookStatus: cfg.Webhook.Status,
	}
	if cfg.Webhook.URL != "" {
		deps.Notifier = notify.NewWebhook(cfg.Webhook.URL, cfg.Webhook.SenderEmail, cfg.Webhook.Timeout)
	}
	if cfg.Scan.ClamdAddr != "" {
		deps.Scanner = scan.NewClamd(cfg.Scan.ClamdAddr)
		logger.Info("virus scanning enabled", slog.String("clamd_addr", cfg.Scan.ClamdAddr))
	}

	handlers := api.Handlers{
		Health:          api.NewHealthHandler(startedAt),
		SubmitRateLimit: cfg.API.SubmitRateLimit,
		InternalSecret:  cfg.API.InternalSecret,
	}
	if cfg.API.SubmitRateLimit > 0 {
		handlers.RateCounter = redisClient
	}

	if cfg.Ledger.Enabled {
		db, err := database.Connect(cfg.Database)
		if err != nil {
			log.Fatalf("init database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("auto migrate: %v", err)
		}
		ledger := database.NewLedger(db)
		deps.Ledger = ledger
		handlers.Submissions = api.NewSubmissionsHandler(ledger)
		logger.Info("submission ledger enabled", slog.String("db_host", cfg.Database.Host))
	}

	handlers.Submit = api.NewSubmitHandler(intake.NewService(deps), cfg.API.MaxUploadBytes)

	router := api.NewRouter(cfg, logger)
	api.RegisterRoutes(router, handlers)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server forced to shutdown", slog.Any("error", err))
	}
}
