package reaper

import (
	"context"
	"time"

	"github.com/azhengyongqin/transfer-hub/internal/config"
	"github.com/azhengyongqin/transfer-hub/internal/events"
	"github.com/azhengyongqin/transfer-hub/internal/logger"
	"github.com/azhengyongqin/transfer-hub/internal/metrics"
	"github.com/azhengyongqin/transfer-hub/internal/model"
	"github.com/azhengyongqin/transfer-hub/internal/registry"
)

// Canceller 回收器需要的取消入口（由 Executor 提供）
type Canceller interface {
	Cancel(taskID string) error
}

// Reaper 孤儿任务回收器。周期性扫描 Registry，对"未结束且启动已久
// 却颗粒无收"的任务先协作取消，限期未停则强制标记 failed(reaped)，
// 保证没有任务悄悄卡死在不可达状态。pending 同样参与回收：
// 卡死在元数据解析里的任务连首次进度都没有。
//
// 判定口径是显式的：只有 progress_percent == 0 的任务会被回收；
// 哪怕卡在单个大对象上，只要传过一个字节就豁免。
type Reaper struct {
	reg    *registry.Registry
	canc   Canceller
	bridge *events.Bridge
	cfg    config.ReaperConfig
}

func New(reg *registry.Registry, canc Canceller, bridge *events.Bridge, cfg config.ReaperConfig) *Reaper {
	return &Reaper{reg: reg, canc: canc, bridge: bridge, cfg: cfg}
}

// Run 周期扫描循环，ctx 取消后退出
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(time.Now())
		}
	}
}

// Sweep 执行一轮扫描。单个任务的处理失败不影响其余任务。
func (r *Reaper) Sweep(now time.Time) {
	for _, st := range r.reg.List() {
		if !r.orphaned(st, now) {
			continue
		}
		r.reap(st.TaskID)
	}
}

func (r *Reaper) orphaned(st model.TaskState, now time.Time) bool {
	if st.Status.Terminal() {
		return false
	}
	if st.ProgressPercent > 0 {
		return false
	}
	if st.StartedAt == nil {
		return false
	}
	return now.Sub(*st.StartedAt) > r.cfg.OrphanThreshold
}

// reap 先协作取消并限期等待终态；到期仍未停则强制标记 failed，
// 条目保留（不删除），避免任务凭空消失。
func (r *Reaper) reap(taskID string) {
	log := logger.WithTaskID(taskID)
	log.Warn().Msg("检测到孤儿任务，发起回收")

	if err := r.canc.Cancel(taskID); err != nil {
		log.Error().Err(err).Msg("孤儿任务取消失败")
		metrics.RecordError("reaper", "cancel")
		return
	}

	// 限期轮询等待执行器走到终态
	deadline := time.Now().Add(r.cfg.Grace)
	for time.Now().Before(deadline) {
		st, ok := r.reg.Get(taskID)
		if !ok {
			return
		}
		if st.Status.Terminal() {
			if err := r.reg.Remove(taskID); err != nil {
				log.Error().Err(err).Msg("孤儿任务条目移除失败")
				metrics.RecordError("reaper", "remove")
			}
			metrics.RecordOrphanReaped()
			log.Info().Msg("孤儿任务已回收")
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	// 执行器未按期停止：强制终态化。Registry 的终态保护保证
	// 执行器随后的写入不会覆盖这个结论。
	completedAt := time.Now()
	st, err := r.reg.Upsert(taskID, func(ts *model.TaskState) {
		ts.Status = model.TaskStatusFailed
		ts.CompletedAt = &completedAt
		ts.ErrorDetail = &model.ErrorDetail{
			Code:    model.ErrorCodeReaped,
			Message: "任务长时间无进度，被回收器强制终止",
		}
	})
	if err != nil {
		// 刚好在宽限期边界进入终态，同样算回收成功
		log.Info().Msg("孤儿任务在宽限期边界进入终态")
	} else {
		// 执行器此后不会再记到终态指标上，这里补记并推送终态事件
		metrics.RecordTaskCompleted(string(model.TaskStatusFailed), 0)
		r.bridge.Publish(events.Event{Kind: events.KindCompleted, Task: st})
	}
	metrics.RecordOrphanReaped()
	log.Warn().Msg("孤儿任务未按期停止，已强制标记 failed")
}
