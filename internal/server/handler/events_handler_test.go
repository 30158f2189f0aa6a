package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/azhengyongqin/transfer-hub/internal/events"
	"github.com/azhengyongqin/transfer-hub/internal/model"
	"github.com/azhengyongqin/transfer-hub/internal/registry"
)

// httptest.ResponseRecorder 未实现 http.CloseNotifier，而 gin 的 Stream 需要它
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (c *closeNotifyRecorder) CloseNotify() <-chan bool { return c.closed }

func TestEventsHandler_Stream(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reg := registry.New()
	bridge := events.NewBridge(reg)
	h := NewEventsHandler(bridge)

	r := gin.New()
	r.GET("/events", h.Stream)

	ctx, cancelFn := context.WithCancel(context.Background())
	w := newCloseNotifyRecorder()
	req := httptest.NewRequest("GET", "/events", nil).WithContext(ctx)

	done := make(chan struct{})
	go func() {
		r.ServeHTTP(w, req)
		close(done)
	}()

	// handler 订阅与发布之间没有握手，持续发布直到客户端断开
	go func() {
		for ctx.Err() == nil {
			bridge.Publish(events.Event{
				Kind: events.KindProgress,
				Task: model.TaskState{TaskID: "task-1", Status: model.TaskStatusRunning, ProgressPercent: 42},
			})
			time.Sleep(2 * time.Millisecond)
		}
	}()

	// 留出推送时间后模拟客户端断开
	time.Sleep(50 * time.Millisecond)
	cancelFn()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("客户端断开后 handler 应退出")
	}

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(body, "event:progress"), "应写出事件类型")
	assert.True(t, strings.Contains(body, `"task_id":"task-1"`), "事件应携带完整 TaskState")
	assert.True(t, strings.Contains(body, `"progress_percent":42`))
}
