package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/transfer-hub/internal/events"
)

// EventsHandler SSE 事件流 Handler
type EventsHandler struct {
	bridge *events.Bridge
}

// NewEventsHandler 创建 EventsHandler
func NewEventsHandler(bridge *events.Bridge) *EventsHandler {
	return &EventsHandler{bridge: bridge}
}

// Stream godoc
// @Summary 订阅任务事件流
// @Description SSE 推送 progress / completed 事件，每条携带完整 TaskState。
// @Description 推送是尽力而为的：断线重连后应先 GET /tasks 对账再继续监听。
// @Tags Events
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /events [get]
func (h *EventsHandler) Stream(c *gin.Context) {
	ch, stop := h.bridge.Subscribe()
	defer stop()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()

	c.Stream(func(_ io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev.Task)
			return true
		}
	})
}
