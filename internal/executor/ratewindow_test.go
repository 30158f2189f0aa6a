package executor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateWindow_Rate(t *testing.T) {
	base := time.Now()
	w := newRateWindow(5 * time.Second)

	// 空窗口
	assert.Equal(t, 0.0, w.Rate(base), "无样本时速率应为 0")

	// 1 秒内传输 1000 字节
	w.Add(base, 500)
	w.Add(base.Add(500*time.Millisecond), 500)
	rate := w.Rate(base.Add(time.Second))
	assert.InDelta(t, 1000.0, rate, 1.0, "1 秒传 1000 字节速率应约为 1000 B/s")
}

func TestRateWindow_MinElapsedClamp(t *testing.T) {
	base := time.Now()
	w := newRateWindow(5 * time.Second)

	// 单样本：跨度被钳到 250ms，不产生无穷大
	w.Add(base, 1000)
	rate := w.Rate(base)
	assert.InDelta(t, 4000.0, rate, 1.0, "250ms 最小跨度下 1000 字节应为 4000 B/s")
}

func TestRateWindow_ExpiresOldSamples(t *testing.T) {
	base := time.Now()
	w := newRateWindow(time.Second)

	w.Add(base, 10000)
	w.Add(base.Add(2*time.Second), 100)

	// 第一份样本已超出窗口，只剩第二份
	rate := w.Rate(base.Add(2 * time.Second))
	assert.InDelta(t, 400.0, rate, 1.0, "过期样本不应计入速率")
}
