package sdk

import "time"

// TaskStatus 统一状态枚举，避免用户侧写错字符串。
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusFailed    TaskStatus = "failed"
)

// Terminal 终态判断
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusCancelled, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// ErrorDetail 结构化错误信息
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TaskState 服务端任务状态快照（与 hub 的 wire 格式对齐）
type TaskState struct {
	TaskID           string       `json:"task_id"`
	Status           TaskStatus   `json:"status"`
	ProgressPercent  int          `json:"progress_percent"`
	TotalBytes       *int64       `json:"total_bytes"`
	TransferredBytes int64        `json:"transferred_bytes"`
	TransferRate     float64      `json:"transfer_rate"`
	CurrentItem      string       `json:"current_item,omitempty"`
	TotalItems       int          `json:"total_items"`
	CompletedItems   int          `json:"completed_items"`
	ErrorDetail      *ErrorDetail `json:"error_detail,omitempty"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}
