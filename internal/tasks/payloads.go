package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeFollowUpEmail = "email:follow_up"
)

// FollowUpMaxRetry 限制跟进邮件在队列中的重试次数。
const FollowUpMaxRetry = 3

// FollowUpPayload 描述发送跟进邮件所需的最小信息。
type FollowUpPayload struct {
	Recipient     string `json:"recipient"`
	Name          string `json:"name"`
	ApplicationID string `json:"application_id"`
	ObjectKey     string `json:"object_key"`
	CorrelationID string `json:"correlation_id"`
}

// NewFollowUpEmailTask 构造一个新的跟进邮件任务。
func NewFollowUpEmailTask(payload FollowUpPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFollowUpEmail, data), nil
}

// FollowUpTaskID 以对象 Key 去重，同一份简历只会排一封跟进邮件。
// 申请号只有毫秒精度，同一毫秒内的两次投递会撞上。
func FollowUpTaskID(objectKey string) string {
	return fmt.Sprintf("follow-up:%s", objectKey)
}
