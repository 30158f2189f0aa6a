package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/azhengyongqin/transfer-hub/internal/executor"
	"github.com/azhengyongqin/transfer-hub/internal/middleware"
	"github.com/azhengyongqin/transfer-hub/internal/registry"
	"github.com/azhengyongqin/transfer-hub/internal/server/dto"
	"github.com/azhengyongqin/transfer-hub/internal/transfer"
)

// TaskHandler Task 相关 API Handler
type TaskHandler struct {
	exec *executor.Executor
}

// NewTaskHandler 创建 TaskHandler
func NewTaskHandler(exec *executor.Executor) *TaskHandler {
	return &TaskHandler{exec: exec}
}

// StartTask godoc
// @Summary 启动下载任务
// @Description 为指定 task_id 启动一个后台下载作业，立即返回，不等待执行
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body dto.StartTaskRequest true "任务启动请求"
// @Success 200 {object} dto.StartTaskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) StartTask(c *gin.Context) {
	var req dto.StartTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	// 生成或使用提供的 task_id
	taskID := req.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	if !middleware.ValidateTaskID(taskID) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "task_id 格式无效"})
		return
	}

	spec := transfer.JobSpec{Prefix: req.Prefix, Keys: req.Keys}
	if err := h.exec.Start(taskID, spec); err != nil {
		if errors.Is(err, registry.ErrAlreadyRunning) {
			c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "同一 task_id 已有未结束的执行"})
			return
		}
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.StartTaskResponse{
		TaskID: taskID,
		Status: "accepted",
	})
}

// GetTask godoc
// @Summary 获取任务进度
// @Description 根据 task_id 获取任务当前状态快照
// @Tags Tasks
// @Produce json
// @Param task_id path string true "任务 ID"
// @Success 200 {object} dto.TaskResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks/{task_id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID := c.Param("task_id")
	st, ok := h.exec.Progress(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "task 不存在"})
		return
	}
	c.JSON(http.StatusOK, dto.TaskResponse{Item: st})
}

// ListTasks godoc
// @Summary 查询全部任务进度
// @Description 返回 Registry 当前全量快照；观察者重连后以此对账
// @Tags Tasks
// @Produce json
// @Success 200 {object} dto.TaskListResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	items := h.exec.All()
	c.JSON(http.StatusOK, dto.TaskListResponse{Items: items, Total: len(items)})
}

// CancelTask godoc
// @Summary 取消任务
// @Description 发出协作式取消信号后立即返回；任务真正停止需轮询进度。
// @Description 对已终态的任务取消是幂等的成功。
// @Tags Tasks
// @Produce json
// @Param task_id path string true "任务 ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /tasks/{task_id}/cancel [post]
func (h *TaskHandler) CancelTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if err := h.exec.Cancel(taskID); err != nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "task 不存在"})
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Status: "ok", Message: "取消信号已记录"})
}

// CleanupTask godoc
// @Summary 清理任务条目
// @Description 移除终态任务的条目；未结束的任务返回 409
// @Tags Tasks
// @Produce json
// @Param task_id path string true "任务 ID"
// @Success 200 {object} dto.SuccessResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /tasks/{task_id} [delete]
func (h *TaskHandler) CleanupTask(c *gin.Context) {
	taskID := c.Param("task_id")
	if err := h.exec.Cleanup(taskID); err != nil {
		switch {
		case errors.Is(err, registry.ErrStillRunning):
			c.JSON(http.StatusConflict, dto.ErrorResponse{Error: "task 尚未结束，禁止清理"})
		default:
			c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "task 不存在"})
		}
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse{Status: "ok", Message: "条目已移除"})
}
