package intake

import (
	"strings"
	"time"

	"cvintake/internal/resume"
)

// Submission 是一次表单提交，只在请求期间存在。
type Submission struct {
	Name          string
	Email         string
	Phone         string
	File          []byte
	FileName      string
	MIMEType      string
	CorrelationID string
}

// Validate 要求四个字段全部非空；文本字段先去掉首尾空白。
func (s *Submission) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.Email = strings.TrimSpace(s.Email)
	s.Phone = strings.TrimSpace(s.Phone)

	var missing []string
	if s.Name == "" {
		missing = append(missing, "name")
	}
	if s.Email == "" {
		missing = append(missing, "email")
	}
	if s.Phone == "" {
		missing = append(missing, "phone")
	}
	if len(s.File) == 0 {
		missing = append(missing, "cv")
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// Result 是成功提交后返回给客户端的信息。
type Result struct {
	ApplicationID string
	CVURL         string
	FollowUpAt    time.Time
}

// Record 是写入流水账的一行。
type Record struct {
	ApplicationID string
	ObjectKey     string
	Name          string
	Email         string
	Phone         string
	CVURL         string
	Content       resume.Content
	CorrelationID string
}
