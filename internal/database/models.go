package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Submission 是一次成功提交的流水记录，表格仍是对外的主记录。
type Submission struct {
	gorm.Model
	ApplicationID      string         `gorm:"index;size:32"`
	ObjectKey          string         `gorm:"uniqueIndex;size:512"`
	Name               string         `gorm:"size:255"`
	Email              string         `gorm:"index;size:255"`
	Phone              string         `gorm:"size:64"`
	CVURL              string         `gorm:"type:text"`
	Education          datatypes.JSON `gorm:"type:jsonb"`
	Qualifications     datatypes.JSON `gorm:"type:jsonb"`
	Projects           datatypes.JSON `gorm:"type:jsonb"`
	CorrelationID      string         `gorm:"size:64"`
	ErrorCode          int
	ConfirmationSentAt *time.Time
	FollowUpAt         *time.Time
	FollowUpSentAt     *time.Time
}
