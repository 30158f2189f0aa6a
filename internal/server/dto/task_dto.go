package dto

import "github.com/azhengyongqin/transfer-hub/internal/model"

// StartTaskRequest 启动任务请求。task_id 可选，默认生成。
// prefix 与 keys 至少其一非空。
type StartTaskRequest struct {
	TaskID string   `json:"task_id" example:"dataset-2024-08"`
	Prefix string   `json:"prefix" example:"datasets/2024-08/"`
	Keys   []string `json:"keys"`
}

// StartTaskResponse 启动任务响应
type StartTaskResponse struct {
	TaskID string `json:"task_id" example:"dataset-2024-08"`
	Status string `json:"status" example:"accepted"`
}

// TaskResponse 任务详情响应
type TaskResponse struct {
	Item model.TaskState `json:"item"`
}

// TaskListResponse 任务列表响应（观察者重连后的对账入口）
type TaskListResponse struct {
	Items []model.TaskState `json:"items"`
	Total int               `json:"total"`
}
