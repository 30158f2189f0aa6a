package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azhengyongqin/transfer-hub/internal/healthcheck"
)

// ConnectionHandler 对象存储连接测试 Handler
type ConnectionHandler struct {
	tester healthcheck.ConnectionTester
}

// NewConnectionHandler 创建 ConnectionHandler
func NewConnectionHandler(tester healthcheck.ConnectionTester) *ConnectionHandler {
	return &ConnectionHandler{tester: tester}
}

// Test godoc
// @Summary 测试对象存储连接
// @Description 对配置的 bucket 发起探测，返回面向用户的结论（无论成败都是 200）
// @Tags Connection
// @Produce json
// @Success 200 {object} transfer.ConnectionResult
// @Router /connection/test [post]
func (h *ConnectionHandler) Test(c *gin.Context) {
	c.JSON(http.StatusOK, h.tester.TestConnection(c.Request.Context()))
}
