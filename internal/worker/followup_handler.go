package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"cvintake/internal/database"
	"cvintake/internal/errcode"
	"cvintake/internal/tasks"
)

// FollowUpMailer 发送跟进邮件。
type FollowUpMailer interface {
	SendFollowUp(ctx context.Context, to, name string) error
}

// FollowUpLedger 是跟进任务需要更新的流水字段，可以为 nil。按对象 Key 定位。
type FollowUpLedger interface {
	MarkFollowUpSent(ctx context.Context, objectKey string, at time.Time) error
	MarkFailed(ctx context.Context, objectKey string, code int) error
}

// FollowUpTaskHandler 负责消费跟进邮件任务。
type FollowUpTaskHandler struct {
	mailer FollowUpMailer
	ledger FollowUpLedger
	logger *slog.Logger
	now    func() time.Time
}

// NewFollowUpTaskHandler 创建任务处理器。
func NewFollowUpTaskHandler(mailer FollowUpMailer, ledger FollowUpLedger, logger *slog.Logger) *FollowUpTaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FollowUpTaskHandler{
		mailer: mailer,
		ledger: ledger,
		logger: logger,
		now:    time.Now,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *FollowUpTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.FollowUpPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("decode follow-up payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Recipient == "" {
		log.Warn("follow-up task without recipient, skipping")
		return nil
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("application_id", payload.ApplicationID),
		slog.String("object_key", payload.ObjectKey),
	)
	log.Info("sending follow-up email")

	defer func() {
		if retErr == nil || !isFinalAsynqAttempt(ctx) || h.ledger == nil {
			return
		}
		if err := h.ledger.MarkFailed(ctx, payload.ObjectKey, errcode.FollowUpFailed); err != nil {
			log.Error("mark follow-up failure failed", slog.Any("error", err))
		}
	}()

	if err := h.mailer.SendFollowUp(ctx, payload.Recipient, payload.Name); err != nil {
		log.Error("send follow-up email failed", slog.Any("error", err))
		return err
	}

	if h.ledger != nil {
		err := h.ledger.MarkFollowUpSent(ctx, payload.ObjectKey, h.now())
		switch {
		case errors.Is(err, database.ErrNotFound):
			log.Warn("submission missing from ledger")
		case err != nil:
			log.Error("mark follow-up sent failed", slog.Any("error", err))
		}
	}

	log.Info("follow-up email sent")
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
