package errcode

// 错误码约定：
// - 4xxx：申请人可修正的错误（文件被拒）
// - 5xxx：上游服务错误（需要中断流程）
// - 6xxx：旁路步骤失败，仅记录不影响响应
const (
	UploadRejected = 4002
	StorageFailed  = 5001
	SheetFailed    = 5002
	MailFailed     = 5003
	ScanFailed     = 5004
	NotifyFailed   = 6001
	FollowUpFailed = 6002
	LedgerFailed   = 6003
)
