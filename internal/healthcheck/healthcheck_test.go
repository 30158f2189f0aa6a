package healthcheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/azhengyongqin/transfer-hub/internal/transfer"
)

type fakeTester struct {
	result transfer.ConnectionResult
}

func (f *fakeTester) TestConnection(ctx context.Context) transfer.ConnectionResult {
	return f.result
}

func TestLivenessCheck(t *testing.T) {
	h := NewHealthChecker(nil, t.TempDir())

	result := h.LivenessCheck()
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "running", result.Checks["service"])
}

func TestReadinessCheck_AllOK(t *testing.T) {
	tester := &fakeTester{result: transfer.ConnectionResult{Success: true, Message: "连接成功"}}
	h := NewHealthChecker(tester, t.TempDir())

	result := h.ReadinessCheck(context.Background())
	assert.Equal(t, "ok", result.Status)
	assert.Equal(t, "ok", result.Checks["download_dir"])
	assert.Equal(t, "ok", result.Checks["object_store"])
}

func TestReadinessCheck_ObjectStoreDown(t *testing.T) {
	tester := &fakeTester{result: transfer.ConnectionResult{Success: false, Message: "认证失败"}}
	h := NewHealthChecker(tester, t.TempDir())

	result := h.ReadinessCheck(context.Background())
	assert.Equal(t, "error", result.Status)
	assert.Equal(t, "ok", result.Checks["download_dir"])
	assert.Contains(t, result.Checks["object_store"], "认证失败")
}

func TestReadinessCheck_BadDownloadDir(t *testing.T) {
	tester := &fakeTester{result: transfer.ConnectionResult{Success: true}}
	// 普通文件路径下无法创建目录
	h := NewHealthChecker(tester, "/dev/null/downloads")

	result := h.ReadinessCheck(context.Background())
	assert.Equal(t, "error", result.Status)
	assert.Contains(t, result.Checks["download_dir"], "error")
}

func TestReadinessCheck_NoTester(t *testing.T) {
	h := NewHealthChecker(nil, t.TempDir())

	result := h.ReadinessCheck(context.Background())
	assert.Equal(t, "ok", result.Status)
	_, ok := result.Checks["object_store"]
	assert.False(t, ok, "未配置 tester 时不应出现 object_store 检查项")
}
