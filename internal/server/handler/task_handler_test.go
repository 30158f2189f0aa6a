package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azhengyongqin/transfer-hub/internal/cancel"
	"github.com/azhengyongqin/transfer-hub/internal/config"
	"github.com/azhengyongqin/transfer-hub/internal/events"
	"github.com/azhengyongqin/transfer-hub/internal/executor"
	"github.com/azhengyongqin/transfer-hub/internal/middleware"
	"github.com/azhengyongqin/transfer-hub/internal/model"
	"github.com/azhengyongqin/transfer-hub/internal/registry"
	"github.com/azhengyongqin/transfer-hub/internal/server/dto"
	"github.com/azhengyongqin/transfer-hub/internal/transfer"
)

// fakeCapability 测试用传输能力：立即成功
type fakeCapability struct {
	items []transfer.Item
}

func (f *fakeCapability) ListItems(ctx context.Context, spec transfer.JobSpec) ([]transfer.Item, error) {
	return f.items, nil
}

func (f *fakeCapability) FetchItem(ctx context.Context, item transfer.Item, destPath string) (int64, error) {
	return item.Size, nil
}

func (f *fakeCapability) TestConnection(ctx context.Context) transfer.ConnectionResult {
	return transfer.ConnectionResult{Success: true, Message: "连接成功"}
}

func setupTestRouter(t *testing.T) (*gin.Engine, *executor.Executor, *registry.Registry) {
	gin.SetMode(gin.TestMode)

	reg := registry.New()
	ctrl := cancel.NewController()
	bridge := events.NewBridge(reg)
	cap := &fakeCapability{items: []transfer.Item{{Key: "a.bin", Size: 100}}}
	exec := executor.New(context.Background(), reg, ctrl, bridge, cap, config.DownloadConfig{
		Dir:              t.TempDir(),
		RetryLimit:       1,
		BackoffBase:      time.Millisecond,
		ProgressInterval: time.Millisecond,
	})

	h := NewTaskHandler(exec)
	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/tasks", h.StartTask)
	api.GET("/tasks", h.ListTasks)
	api.GET("/tasks/:task_id", middleware.ValidateTaskIDParam(), h.GetTask)
	api.POST("/tasks/:task_id/cancel", middleware.ValidateTaskIDParam(), h.CancelTask)
	api.DELETE("/tasks/:task_id", middleware.ValidateTaskIDParam(), h.CleanupTask)

	return r, exec, reg
}

func waitTerminal(t *testing.T, reg *registry.Registry, taskID string) model.TaskState {
	t.Helper()
	var st model.TaskState
	require.Eventually(t, func() bool {
		got, ok := reg.Get(taskID)
		if !ok {
			return false
		}
		st = got
		return st.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	return st
}

func TestStartTask(t *testing.T) {
	r, _, reg := setupTestRouter(t)

	body := `{"task_id":"task-1","keys":["a.bin"]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/tasks", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.StartTaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, "accepted", resp.Status)

	waitTerminal(t, reg, "task-1")
}

func TestStartTask_GeneratesTaskID(t *testing.T) {
	r, _, reg := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/tasks", bytes.NewBufferString(`{"prefix":"data/"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.StartTaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID, "未提供 task_id 时应自动生成")
	waitTerminal(t, reg, resp.TaskID)
}

func TestStartTask_BadRequests(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not-json`},
		{"empty spec", `{"task_id":"task-1"}`},
		{"invalid task_id", `{"task_id":"bad id!","keys":["a.bin"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest("POST", "/api/v1/tasks", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestStartTask_Conflict(t *testing.T) {
	r, _, reg := setupTestRouter(t)

	// 直接注册一个未结束的条目占住 task_id
	_, _, err := reg.Create("busy", time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/tasks", bytes.NewBufferString(`{"task_id":"busy","keys":["a.bin"]}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code, "未结束的 task_id 应返回 409")
}

func TestGetTask(t *testing.T) {
	r, exec, reg := setupTestRouter(t)

	require.NoError(t, exec.Start("task-1", transfer.JobSpec{Keys: []string{"a.bin"}}))
	waitTerminal(t, reg, "task-1")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/tasks/task-1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "task-1", resp.Item.TaskID)
	assert.Equal(t, model.TaskStatusCompleted, resp.Item.Status)
	assert.Equal(t, 100, resp.Item.ProgressPercent)
}

func TestGetTask_NotFound(t *testing.T) {
	r, _, _ := setupTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/tasks/ghost", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListTasks(t *testing.T) {
	r, exec, reg := setupTestRouter(t)

	require.NoError(t, exec.Start("task-a", transfer.JobSpec{Keys: []string{"a.bin"}}))
	require.NoError(t, exec.Start("task-b", transfer.JobSpec{Keys: []string{"a.bin"}}))
	waitTerminal(t, reg, "task-a")
	waitTerminal(t, reg, "task-b")

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.TaskListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "task-a", resp.Items[0].TaskID, "列表应按 task_id 排序")
	assert.Equal(t, "task-b", resp.Items[1].TaskID)
}

func TestCancelTask(t *testing.T) {
	r, exec, reg := setupTestRouter(t)

	require.NoError(t, exec.Start("task-1", transfer.JobSpec{Keys: []string{"a.bin"}}))
	waitTerminal(t, reg, "task-1")

	// 终态任务上的取消是幂等成功
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/tasks/task-1/cancel", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// 未知 task_id
	w = httptest.NewRecorder()
	req = httptest.NewRequest("POST", "/api/v1/tasks/ghost/cancel", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCleanupTask(t *testing.T) {
	r, exec, reg := setupTestRouter(t)

	// 未结束的任务禁止清理
	_, _, err := reg.Create("busy", time.Now())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("DELETE", "/api/v1/tasks/busy", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)

	// 终态任务可清理
	require.NoError(t, exec.Start("task-1", transfer.JobSpec{Keys: []string{"a.bin"}}))
	waitTerminal(t, reg, "task-1")

	w = httptest.NewRecorder()
	req = httptest.NewRequest("DELETE", "/api/v1/tasks/task-1", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// 清理后不可见
	w = httptest.NewRecorder()
	req = httptest.NewRequest("GET", "/api/v1/tasks/task-1", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// 重复清理
	w = httptest.NewRecorder()
	req = httptest.NewRequest("DELETE", "/api/v1/tasks/task-1", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
