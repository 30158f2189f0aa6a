package executor

import "time"

// rateSample 一次成功单元贡献的字节数
type rateSample struct {
	at    time.Time
	bytes int64
}

// rateWindow 滑动窗口速率估计。只保留窗口期内的样本，
// 速率 = 窗口内字节总量 / 实际跨度。
type rateWindow struct {
	window  time.Duration
	samples []rateSample
}

func newRateWindow(window time.Duration) *rateWindow {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &rateWindow{window: window}
}

func (w *rateWindow) Add(at time.Time, bytes int64) {
	w.samples = append(w.samples, rateSample{at: at, bytes: bytes})
	w.trim(at)
}

func (w *rateWindow) trim(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.samples) && w.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		w.samples = append(w.samples[:0], w.samples[i:]...)
	}
}

// Rate 返回 bytes/sec。样本不足或跨度过短时按最小跨度钳制，
// 避免单样本产生无穷大的瞬时值。
func (w *rateWindow) Rate(now time.Time) float64 {
	w.trim(now)
	if len(w.samples) == 0 {
		return 0
	}

	var total int64
	for _, s := range w.samples {
		total += s.bytes
	}

	elapsed := now.Sub(w.samples[0].at)
	if min := 250 * time.Millisecond; elapsed < min {
		elapsed = min
	}
	return float64(total) / elapsed.Seconds()
}
