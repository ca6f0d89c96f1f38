// Package notify 在申请入库后向外部 webhook 推送一次通知，失败只记录不影响提交结果。
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cvintake/internal/resume"
)

// Payload 是 webhook 的固定报文结构。
type Payload struct {
	CVData   CVData   `json:"cv_data"`
	Metadata Metadata `json:"metadata"`
}

// CVData 是抽取出的段落与简历的签名链接。
type CVData struct {
	PersonalInfo   resume.PersonalInfo `json:"personal_info"`
	Education      []string            `json:"education"`
	Qualifications []string            `json:"qualifications"`
	Projects       []string            `json:"projects"`
	CVPublicLink   string              `json:"cv_public_link"`
}

// Metadata 描述本次投递。
type Metadata struct {
	ApplicantName      string `json:"applicant_name"`
	Email              string `json:"email"`
	Status             string `json:"status"`
	CVProcessed        bool   `json:"cv_processed"`
	ProcessedTimestamp string `json:"processed_timestamp"`
}

// NewPayload 组装报文，时间戳使用 UTC 毫秒精度的 ISO-8601。
func NewPayload(content resume.Content, cvURL, status string, processedAt time.Time) Payload {
	content.Normalize()
	return Payload{
		CVData: CVData{
			PersonalInfo:   content.PersonalInfo,
			Education:      content.Education,
			Qualifications: content.Qualifications,
			Projects:       content.Projects,
			CVPublicLink:   cvURL,
		},
		Metadata: Metadata{
			ApplicantName:      content.PersonalInfo.Name,
			Email:              content.PersonalInfo.Email,
			Status:             status,
			CVProcessed:        true,
			ProcessedTimestamp: processedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		},
	}
}

// NotificationError 表示 webhook 调用失败。调用方只记录，不向上传播。
type NotificationError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *NotificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("webhook notification: %v", e.Err)
	}
	return fmt.Sprintf("webhook notification: status %d: %s", e.StatusCode, e.Body)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// Webhook 以 JSON POST 推送通知。
type Webhook struct {
	url         string
	senderEmail string
	client      *http.Client
}

// NewWebhook 返回 Webhook；timeout 覆盖整个请求。
func NewWebhook(url, senderEmail string, timeout time.Duration) *Webhook {
	return &Webhook{
		url:         strings.TrimSpace(url),
		senderEmail: senderEmail,
		client:      &http.Client{Timeout: timeout},
	}
}

// Notify 发送一次通知，非 2xx 返回 *NotificationError。
func (w *Webhook) Notify(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &NotificationError{Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &NotificationError{Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if w.senderEmail != "" {
		req.Header.Set("X-Candidate-Email", w.senderEmail)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &NotificationError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return &NotificationError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
