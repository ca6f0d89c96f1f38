// Package intake 串起一次简历投递的全部步骤：
// 校验、（扫描）、存储、抽取、登记、通知、确认邮件、安排跟进。
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cvintake/internal/errcode"
	"cvintake/internal/extract"
	"cvintake/internal/metrics"
	"cvintake/internal/notify"
	"cvintake/internal/resume"
	"cvintake/internal/scan"
	"cvintake/internal/sheets"
	"cvintake/internal/storage"
	"cvintake/internal/tasks"
)

// 处理步骤名，用于日志与指标。
const (
	StepScan         = "scan"
	StepStorage      = "storage"
	StepSheet        = "sheet"
	StepLedger       = "ledger"
	StepNotify       = "notify"
	StepConfirmation = "confirmation"
	StepFollowUp     = "follow_up"
)

// ObjectStore 保存简历并返回限时链接。
type ObjectStore interface {
	SaveCV(ctx context.Context, upload storage.CVUpload) (*storage.StoredFile, error)
}

// Scanner 在写入存储前检查文件。
type Scanner interface {
	Scan(ctx context.Context, data []byte) error
}

// Notifier 把抽取结果推送给下游。
type Notifier interface {
	Notify(ctx context.Context, payload notify.Payload) error
}

// Mailer 发送确认邮件。
type Mailer interface {
	SendConfirmation(ctx context.Context, to, name string) error
}

// FollowUpScheduler 安排次日的跟进邮件，返回计划发送时间。
type FollowUpScheduler interface {
	Schedule(ctx context.Context, payload tasks.FollowUpPayload) (time.Time, error)
}

// Ledger 是可选的投递流水，以对象 Key 定位记录。
type Ledger interface {
	Record(ctx context.Context, record Record) error
	MarkConfirmationSent(ctx context.Context, objectKey string, at time.Time) error
	MarkFollowUpScheduled(ctx context.Context, objectKey string, at time.Time) error
}

// Deps 汇总 Service 依赖的客户端。Scanner、Notifier、Ledger 可以为 nil。
type Deps struct {
	Store         ObjectStore
	Extractor     extract.Extractor
	Appender      sheets.Appender
	Notifier      Notifier
	Mailer        Mailer
	FollowUps     FollowUpScheduler
	Scanner       Scanner
	Ledger        Ledger
	WebhookStatus string
}

// Service 按固定顺序处理投递，同一请求内不并发。
type Service struct {
	store         ObjectStore
	extractor     extract.Extractor
	appender      sheets.Appender
	notifier      Notifier
	mailer        Mailer
	followUps     FollowUpScheduler
	scanner       Scanner
	ledger        Ledger
	webhookStatus string
	now           func() time.Time
}

// NewService 使用启动时构造好的客户端创建 Service。
func NewService(deps Deps) *Service {
	return &Service{
		store:         deps.Store,
		extractor:     deps.Extractor,
		appender:      deps.Appender,
		notifier:      deps.Notifier,
		mailer:        deps.Mailer,
		followUps:     deps.FollowUps,
		scanner:       deps.Scanner,
		ledger:        deps.Ledger,
		webhookStatus: deps.WebhookStatus,
		now:           time.Now,
	}
}

// Submit 处理一次投递。返回的错误是 *ValidationError、*UploadRejectedError 或 *ProcessingError。
func (s *Service) Submit(ctx context.Context, log *slog.Logger, sub Submission) (*Result, error) {
	if log == nil {
		log = slog.Default()
	}

	if err := sub.Validate(); err != nil {
		metrics.ObserveSubmission(metrics.OutcomeRejected)
		return nil, err
	}

	log = log.With(slog.String("email", sub.Email), slog.String("file_name", sub.FileName))
	log.Info("processing application", slog.String("name", sub.Name), slog.Int("size", len(sub.File)))

	if s.scanner != nil {
		if err := s.scanner.Scan(ctx, sub.File); err != nil {
			if errors.Is(err, scan.ErrInfected) {
				log.Warn("cv rejected by scanner", slog.Any("error", err))
				metrics.ObserveSubmission(metrics.OutcomeRejected)
				return nil, &UploadRejectedError{Message: scan.ErrInfected.Error(), Code: errcode.UploadRejected}
			}
			return nil, s.fail(log, &ProcessingError{
				Step:    StepScan,
				Message: fmt.Sprintf("Failed to scan CV file: %v", err),
				Code:    errcode.ScanFailed,
				Err:     err,
			})
		}
	}

	log.Info("step 1: uploading cv")
	stored, err := s.store.SaveCV(ctx, storage.CVUpload{
		Data:        sub.File,
		FileName:    sub.FileName,
		ContentType: sub.MIMEType,
		Uploader:    sub.Email,
	})
	if err != nil {
		return nil, s.fail(log, &ProcessingError{
			Step:    StepStorage,
			Message: fmt.Sprintf("Failed to upload CV file: %v", err),
			Code:    errcode.StorageFailed,
			Err:     err,
		})
	}
	applicationID := stored.ApplicationID()
	log = log.With(slog.String("application_id", applicationID), slog.String("object_key", stored.Key))

	log.Info("step 2: extracting cv content", slog.String("mime_type", sub.MIMEType))
	content := s.extractor.Extract(ctx, sub.File, sub.MIMEType)
	content.PersonalInfo = resume.PersonalInfo{Name: sub.Name, Email: sub.Email, Phone: sub.Phone}
	content.Normalize()

	log.Info("step 3: appending application record")
	row := sheets.NewRow(sub.Name, sub.Email, sub.Phone, stored.URL, content)
	if err := s.appender.Append(ctx, row); err != nil {
		return nil, s.fail(log, &ProcessingError{
			Step:    StepSheet,
			Message: fmt.Sprintf("Failed to update application records: %v", err),
			Code:    errcode.SheetFailed,
			Err:     err,
		})
	}

	if s.ledger != nil {
		record := Record{
			ApplicationID: applicationID,
			ObjectKey:     stored.Key,
			Name:          sub.Name,
			Email:         sub.Email,
			Phone:         sub.Phone,
			CVURL:         stored.URL,
			Content:       content,
			CorrelationID: sub.CorrelationID,
		}
		if err := s.ledger.Record(ctx, record); err != nil {
			s.warn(log, StepLedger, errcode.LedgerFailed, "ledger record failed", err)
		}
	}

	if s.notifier != nil {
		log.Info("step 4: sending webhook notification")
		payload := notify.NewPayload(content, stored.URL, s.webhookStatus, s.now())
		if err := s.notifier.Notify(ctx, payload); err != nil {
			s.warn(log, StepNotify, errcode.NotifyFailed, "webhook notification failed", err)
		}
	}

	log.Info("step 5: sending confirmation email")
	if err := s.mailer.SendConfirmation(ctx, sub.Email, sub.Name); err != nil {
		return nil, s.fail(log, &ProcessingError{
			Step:    StepConfirmation,
			Message: err.Error(),
			Code:    errcode.MailFailed,
			Err:     err,
		})
	}
	if s.ledger != nil {
		if err := s.ledger.MarkConfirmationSent(ctx, stored.Key, s.now()); err != nil {
			s.warn(log, StepLedger, errcode.LedgerFailed, "ledger confirmation mark failed", err)
		}
	}

	log.Info("step 6: scheduling follow-up email")
	followUpAt, err := s.followUps.Schedule(ctx, tasks.FollowUpPayload{
		Recipient:     sub.Email,
		Name:          sub.Name,
		ApplicationID: applicationID,
		ObjectKey:     stored.Key,
		CorrelationID: sub.CorrelationID,
	})
	switch {
	case errors.Is(err, tasks.ErrAlreadyScheduled):
		log.Info("follow-up already scheduled")
	case err != nil:
		s.warn(log, StepFollowUp, errcode.FollowUpFailed, "follow-up scheduling failed", err)
	default:
		log.Info("follow-up scheduled", slog.Time("follow_up_at", followUpAt))
		if s.ledger != nil {
			if err := s.ledger.MarkFollowUpScheduled(ctx, stored.Key, followUpAt); err != nil {
				s.warn(log, StepLedger, errcode.LedgerFailed, "ledger follow-up mark failed", err)
			}
		}
	}

	metrics.ObserveSubmission(metrics.OutcomeAccepted)
	log.Info("application processed")

	return &Result{
		ApplicationID: applicationID,
		CVURL:         stored.URL,
		FollowUpAt:    followUpAt,
	}, nil
}

func (s *Service) fail(log *slog.Logger, perr *ProcessingError) error {
	log.Error("application processing failed",
		slog.String("step", perr.Step),
		slog.Int("code", perr.Code),
		slog.Any("error", perr.Err),
	)
	metrics.ObserveStepFailure(perr.Step)
	metrics.ObserveSubmission(metrics.OutcomeFailed)
	return perr
}

func (s *Service) warn(log *slog.Logger, step string, code int, msg string, err error) {
	log.Warn(msg, slog.String("step", step), slog.Int("code", code), slog.Any("error", err))
	metrics.ObserveStepFailure(step)
}
