package intake

import "fmt"

// 缺少必填字段时返回给客户端的固定文案。
const (
	MissingFieldsError   = "Missing required fields"
	MissingFieldsDetails = "Please provide name, email, phone and CV file"
)

// ValidationError 表示表单缺少必填字段，对应 400。
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %v", e.Missing)
}

// UploadRejectedError 表示文件本身被拒绝（过大、被判定为恶意），对应 400。
type UploadRejectedError struct {
	Message string
	Code    int
}

func (e *UploadRejectedError) Error() string {
	return e.Message
}

// ProcessingError 表示上游服务失败导致提交中断，对应 500。
// Message 会原样返回给客户端。
type ProcessingError struct {
	Step    string
	Message string
	Code    int
	Err     error
}

func (e *ProcessingError) Error() string {
	return e.Message
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}
