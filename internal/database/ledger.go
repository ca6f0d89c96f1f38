package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cvintake/internal/config"
	"cvintake/internal/intake"
	"cvintake/internal/resume"
)

// ErrNotFound 表示流水中不存在该申请。
var ErrNotFound = errors.New("submission not found")

// Connect 使用配置初始化 PostgreSQL 连接，并返回 GORM 数据库实例。
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap db: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// Migrate 同步流水表结构。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Submission{}); err != nil {
		return fmt.Errorf("migrate submissions: %w", err)
	}
	return nil
}

// Ledger 记录每次成功投递及其邮件状态。
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Record 写入一条投递流水。
func (l *Ledger) Record(ctx context.Context, record intake.Record) error {
	education, err := sectionJSON(record.Content.Education)
	if err != nil {
		return err
	}
	qualifications, err := sectionJSON(record.Content.Qualifications)
	if err != nil {
		return err
	}
	projects, err := sectionJSON(record.Content.Projects)
	if err != nil {
		return err
	}

	row := Submission{
		ApplicationID:  record.ApplicationID,
		ObjectKey:      record.ObjectKey,
		Name:           record.Name,
		Email:          record.Email,
		Phone:          record.Phone,
		CVURL:          record.CVURL,
		Education:      education,
		Qualifications: qualifications,
		Projects:       projects,
		CorrelationID:  record.CorrelationID,
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert submission %s: %w", record.ObjectKey, err)
	}
	return nil
}

// MarkConfirmationSent 记录确认邮件的发送时间。
func (l *Ledger) MarkConfirmationSent(ctx context.Context, objectKey string, at time.Time) error {
	return l.update(ctx, objectKey, "confirmation_sent_at", at)
}

// MarkFollowUpScheduled 记录跟进邮件的计划时间。
func (l *Ledger) MarkFollowUpScheduled(ctx context.Context, objectKey string, at time.Time) error {
	return l.update(ctx, objectKey, "follow_up_at", at)
}

// MarkFollowUpSent 记录跟进邮件的实际发送时间。
func (l *Ledger) MarkFollowUpSent(ctx context.Context, objectKey string, at time.Time) error {
	return l.update(ctx, objectKey, "follow_up_sent_at", at)
}

// MarkFailed 记录跟进任务最终失败时的错误码。
func (l *Ledger) MarkFailed(ctx context.Context, objectKey string, code int) error {
	return l.update(ctx, objectKey, "error_code", code)
}

// ListRecent 按创建时间倒序返回最近的流水。
func (l *Ledger) ListRecent(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []Submission
	err := l.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	return rows, nil
}

// FindByObjectKey 查找单条流水，不存在时返回 ErrNotFound。
func (l *Ledger) FindByObjectKey(ctx context.Context, objectKey string) (*Submission, error) {
	var row Submission
	err := l.db.WithContext(ctx).Where("object_key = ?", objectKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find submission %s: %w", objectKey, err)
	}
	return &row, nil
}

// FindByApplicationID 返回同一毫秒内的全部投递，按 id 升序。
func (l *Ledger) FindByApplicationID(ctx context.Context, applicationID string) ([]Submission, error) {
	var rows []Submission
	err := l.db.WithContext(ctx).Where("application_id = ?", applicationID).Order("id").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("find submissions %s: %w", applicationID, err)
	}
	return rows, nil
}

func (l *Ledger) update(ctx context.Context, objectKey, column string, value any) error {
	result := l.db.WithContext(ctx).
		Model(&Submission{}).
		Where("object_key = ?", objectKey).
		Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("update %s for %s: %w", column, objectKey, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func sectionJSON(section []string) (datatypes.JSON, error) {
	data, err := resume.SectionJSON(section)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(data), nil
}
