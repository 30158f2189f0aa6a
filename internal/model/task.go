package model

import "time"

// TaskStatus 统一任务状态枚举（用于 API/事件流/前端筛选）。
// 约定：
// - pending: 已接受（执行器尚未产生首次进度）
// - running: 执行器开始传输
// - completed: 全部单元传输完成
// - cancelled: 被协作式取消
// - failed: 传输失败（含被 reaper 强制标记）
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusCancelled TaskStatus = "cancelled"
	TaskStatusFailed    TaskStatus = "failed"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted, TaskStatusCancelled, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// Terminal 终态一旦进入不再改变。
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusCancelled, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// ErrorDetail 结构化错误信息，随任务终态一起对外暴露。
// Code 取值：transfer_failed / metadata_failed / reaped
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrorCodeTransfer = "transfer_failed"
	ErrorCodeMetadata = "metadata_failed"
	ErrorCodeReaped   = "reaped"
)

// TaskState 单个下载任务的完整状态快照。
// Registry 是唯一持有者；执行器通过 Upsert 串行更新，读路径拿到的都是副本。
type TaskState struct {
	TaskID           string       `json:"task_id"`
	Status           TaskStatus   `json:"status"`
	ProgressPercent  int          `json:"progress_percent"`
	TotalBytes       *int64       `json:"total_bytes"` // 元数据未知时为 null
	TransferredBytes int64        `json:"transferred_bytes"`
	TransferRate     float64      `json:"transfer_rate"` // bytes/sec，滑动窗口
	CurrentItem      string       `json:"current_item,omitempty"`
	TotalItems       int          `json:"total_items"`
	CompletedItems   int          `json:"completed_items"`
	ErrorDetail      *ErrorDetail `json:"error_detail,omitempty"`
	StartedAt        *time.Time   `json:"started_at,omitempty"`
	CompletedAt      *time.Time   `json:"completed_at,omitempty"`
}

// Clone 深拷贝，避免把内部指针暴露给调用方。
func (t TaskState) Clone() TaskState {
	out := t
	if t.TotalBytes != nil {
		v := *t.TotalBytes
		out.TotalBytes = &v
	}
	if t.ErrorDetail != nil {
		d := *t.ErrorDetail
		out.ErrorDetail = &d
	}
	if t.StartedAt != nil {
		ts := *t.StartedAt
		out.StartedAt = &ts
	}
	if t.CompletedAt != nil {
		ts := *t.CompletedAt
		out.CompletedAt = &ts
	}
	return out
}
