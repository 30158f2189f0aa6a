package healthcheck

import (
	"context"
	"os"
	"path/filepath"

	"github.com/azhengyongqin/transfer-hub/internal/transfer"
)

// ConnectionTester 对象存储可达性探测（由传输能力实现）
type ConnectionTester interface {
	TestConnection(ctx context.Context) transfer.ConnectionResult
}

// HealthChecker 健康检查器
type HealthChecker struct {
	tester      ConnectionTester
	downloadDir string
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(tester ConnectionTester, downloadDir string) *HealthChecker {
	return &HealthChecker{
		tester:      tester,
		downloadDir: downloadDir,
	}
}

// CheckResult 健康检查结果
type CheckResult struct {
	Status string            `json:"status"` // "ok" or "error"
	Checks map[string]string `json:"checks"`
}

// LivenessCheck 存活检查（快速返回，不检查依赖）
func (h *HealthChecker) LivenessCheck() CheckResult {
	return CheckResult{
		Status: "ok",
		Checks: map[string]string{
			"service": "running",
		},
	}
}

// ReadinessCheck 就绪检查（检查所有依赖）
func (h *HealthChecker) ReadinessCheck(ctx context.Context) CheckResult {
	result := CheckResult{
		Checks: make(map[string]string),
	}

	// 检查下载目录可写
	if err := h.checkDownloadDir(); err != nil {
		result.Checks["download_dir"] = "error: " + err.Error()
		result.Status = "error"
	} else {
		result.Checks["download_dir"] = "ok"
	}

	// 检查对象存储可达
	if h.tester != nil {
		if res := h.tester.TestConnection(ctx); !res.Success {
			result.Checks["object_store"] = "error: " + res.Message
			result.Status = "error"
		} else {
			result.Checks["object_store"] = "ok"
		}
	}

	// 如果所有检查都通过
	if result.Status == "" {
		result.Status = "ok"
	}

	return result
}

// checkDownloadDir 确认目标目录存在且可写
func (h *HealthChecker) checkDownloadDir() error {
	if err := os.MkdirAll(h.downloadDir, 0o755); err != nil {
		return err
	}

	probe := filepath.Join(h.downloadDir, ".healthcheck")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return err
	}
	return os.Remove(probe)
}
