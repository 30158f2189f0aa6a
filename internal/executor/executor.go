package executor

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/azhengyongqin/transfer-hub/internal/cancel"
	"github.com/azhengyongqin/transfer-hub/internal/config"
	"github.com/azhengyongqin/transfer-hub/internal/events"
	"github.com/azhengyongqin/transfer-hub/internal/logger"
	"github.com/azhengyongqin/transfer-hub/internal/metrics"
	"github.com/azhengyongqin/transfer-hub/internal/model"
	"github.com/azhengyongqin/transfer-hub/internal/registry"
	"github.com/azhengyongqin/transfer-hub/internal/transfer"
)

// Executor 下载执行器：每个活跃任务一个 goroutine，驱动传输能力、
// 更新 Registry、向事件桥推送进度。所有 goroutine 都被 WaitGroup
// 持有，关闭时可以统一取消并排空。
type Executor struct {
	reg    *registry.Registry
	ctrl   *cancel.Controller
	bridge *events.Bridge
	cap    transfer.Capability
	cfg    config.DownloadConfig

	baseCtx context.Context
	wg      sync.WaitGroup
}

func New(baseCtx context.Context, reg *registry.Registry, ctrl *cancel.Controller, bridge *events.Bridge, capability transfer.Capability, cfg config.DownloadConfig) *Executor {
	return &Executor{
		reg:     reg,
		ctrl:    ctrl,
		bridge:  bridge,
		cap:     capability,
		cfg:     cfg,
		baseCtx: baseCtx,
	}
}

// Start 接受一个下载作业。Registry 已有未结束条目时返回
// registry.ErrAlreadyRunning（单执行约束在这里生效）。
// 调用方不会阻塞在作业执行上：条目注册、goroutine 调度后立即返回。
func (e *Executor) Start(taskID string, spec transfer.JobSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	_, gen, err := e.reg.Create(taskID, time.Now())
	if err != nil {
		return err
	}

	ctx := e.ctrl.Allocate(e.baseCtx, taskID, gen)
	metrics.RecordTaskStarted()

	e.wg.Add(1)
	go e.run(ctx, taskID, gen, spec)

	return nil
}

// Cancel 请求协作式取消。终态任务上的取消是幂等的 no-op；
// 未知 task_id 返回 registry.ErrNotFound。
// 返回时信号已记录，任务真正停下需调用方轮询 Registry。
func (e *Executor) Cancel(taskID string) error {
	st, ok := e.reg.Get(taskID)
	if !ok {
		return registry.ErrNotFound
	}
	if st.Status.Terminal() {
		return nil
	}

	// 令牌可能已被执行器释放（刚好进入终态），此时等价于 no-op
	_ = e.ctrl.Signal(taskID)
	return nil
}

// Cleanup 移除终态任务的条目
func (e *Executor) Cleanup(taskID string) error {
	return e.reg.Remove(taskID)
}

// Progress 查询单个任务状态
func (e *Executor) Progress(taskID string) (model.TaskState, bool) {
	return e.reg.Get(taskID)
}

// All 查询全部任务状态（经由事件桥的权威拉取路径）
func (e *Executor) All() []model.TaskState {
	return e.bridge.SnapshotAll()
}

// Shutdown 取消所有在途任务并等待执行器 goroutine 退出
func (e *Executor) Shutdown(ctx context.Context) error {
	e.ctrl.SignalAll()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run 单个任务的执行循环。gen 是本次执行在 Registry 的执行代：
// 条目被替换后所有写入都会失败，残留 goroutine 自然退出。
func (e *Executor) run(ctx context.Context, taskID string, gen uint64, spec transfer.JobSpec) {
	defer e.wg.Done()
	defer e.ctrl.Release(taskID, gen)

	log := logger.WithTaskID(taskID)

	// 解析作业元数据
	items, err := e.cap.ListItems(ctx, spec)
	if err != nil {
		if ctx.Err() != nil {
			e.finalize(taskID, gen, model.TaskStatusCancelled, nil)
			return
		}
		log.Error().Err(err).Msg("解析作业元数据失败")
		metrics.RecordError("executor", "metadata")
		e.finalize(taskID, gen, model.TaskStatusFailed, &model.ErrorDetail{
			Code:    model.ErrorCodeMetadata,
			Message: err.Error(),
		})
		return
	}

	totalItems := len(items)
	var totalBytes *int64
	sum := int64(0)
	known := true
	for _, it := range items {
		if it.Size < 0 {
			known = false
			break
		}
		sum += it.Size
	}
	if known {
		totalBytes = &sum
	}

	// Pending → Running：元数据就绪即首次进度
	if _, err := e.reg.UpsertOwned(taskID, gen, func(st *model.TaskState) {
		st.Status = model.TaskStatusRunning
		st.TotalItems = totalItems
		st.TotalBytes = totalBytes
	}); err != nil {
		// 条目已被外部置为终态（reaper 强制失败）或已归属新的执行
		log.Warn().Err(err).Msg("条目不再归属本次执行，中止")
		return
	}
	e.bridge.Publish(events.Event{Kind: events.KindProgress, Task: e.snapshot(taskID)})

	log.Info().Int("total_items", totalItems).Msg("任务开始传输")

	window := newRateWindow(5 * time.Second)
	var transferred int64
	completed := 0
	lastEmit := time.Time{}

	for _, item := range items {
		// 取消只在单元边界生效
		select {
		case <-ctx.Done():
			log.Info().Int("completed_items", completed).Msg("任务被取消")
			e.finalize(taskID, gen, model.TaskStatusCancelled, nil)
			return
		default:
		}

		if _, err := e.reg.UpsertOwned(taskID, gen, func(st *model.TaskState) {
			st.CurrentItem = item.Key
		}); err != nil {
			log.Warn().Err(err).Msg("条目不再归属本次执行，中止")
			return
		}

		dest := filepath.Join(e.cfg.Dir, taskID, filepath.FromSlash(item.Key))
		n, err := e.fetchWithRetry(ctx, log, item, dest)
		if err != nil {
			if ctx.Err() != nil {
				// 未完成的单元不贡献任何字节
				log.Info().Int("completed_items", completed).Msg("任务被取消")
				e.finalize(taskID, gen, model.TaskStatusCancelled, nil)
				return
			}
			log.Error().Err(err).Str("item", item.Key).Msg("单元传输失败")
			metrics.RecordError("executor", "transfer")
			e.finalize(taskID, gen, model.TaskStatusFailed, &model.ErrorDetail{
				Code:    model.ErrorCodeTransfer,
				Message: err.Error(),
			})
			return
		}

		transferred += n
		completed++
		now := time.Now()
		window.Add(now, n)
		metrics.RecordTransfer(n)

		// 对象可能在列举后被替换，实际取回多于列举大小时
		// 以实际字节数为准修正总量，保持 transferred ≤ total
		if totalBytes != nil && transferred > *totalBytes {
			adjusted := transferred
			totalBytes = &adjusted
		}

		percent := progressPercent(transferred, totalBytes, completed, totalItems)
		st, err := e.reg.UpsertOwned(taskID, gen, func(ts *model.TaskState) {
			ts.TransferredBytes = transferred
			ts.CompletedItems = completed
			ts.ProgressPercent = percent
			ts.TransferRate = window.Rate(now)
			ts.CurrentItem = ""
			ts.TotalBytes = totalBytes
		})
		if err != nil {
			log.Warn().Err(err).Msg("条目不再归属本次执行，中止")
			return
		}

		// 事件节流：单元很小很密时限制推送频率，末个单元总是推送
		if completed == totalItems || now.Sub(lastEmit) >= e.cfg.ProgressInterval {
			e.bridge.Publish(events.Event{Kind: events.KindProgress, Task: st})
			lastEmit = now
		}
	}

	e.finalize(taskID, gen, model.TaskStatusCompleted, nil)
	log.Info().Int64("transferred_bytes", transferred).Msg("任务完成")
}

// fetchWithRetry 对单个单元应用有界重试 + 指数退避。
// transient 错误在这里被吸收；fatal 错误与重试耗尽向上抛出。
func (e *Executor) fetchWithRetry(ctx context.Context, log zerolog.Logger, item transfer.Item, dest string) (int64, error) {
	var lastErr error

	for attempt := 0; attempt <= e.cfg.RetryLimit; attempt++ {
		if attempt > 0 {
			backoff := e.cfg.BackoffBase << (attempt - 1)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		n, err := e.cap.FetchItem(ctx, item, dest)
		if err == nil {
			return n, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if !transfer.IsTransient(err) {
			return 0, err
		}

		lastErr = err
		log.Warn().Err(err).Str("item", item.Key).Int("attempt", attempt+1).Msg("单元传输瞬时失败，准备重试")
	}

	return 0, lastErr
}

// finalize 终态迁移 + completed 事件。Registry 的终态保护保证
// completed_at 只被设置一次；若条目已被别的写入方（reaper）终态化，
// 或已归属新的执行代，这里静默放弃。
func (e *Executor) finalize(taskID string, gen uint64, status model.TaskStatus, detail *model.ErrorDetail) {
	now := time.Now()
	st, err := e.reg.UpsertOwned(taskID, gen, func(ts *model.TaskState) {
		ts.Status = status
		ts.CompletedAt = &now
		ts.CurrentItem = ""
		ts.ErrorDetail = detail
		if status == model.TaskStatusCompleted {
			ts.ProgressPercent = 100
		}
	})
	if err != nil {
		return
	}

	duration := 0.0
	if st.StartedAt != nil {
		duration = now.Sub(*st.StartedAt).Seconds()
	}
	metrics.RecordTaskCompleted(string(status), duration)

	e.bridge.Publish(events.Event{Kind: events.KindCompleted, Task: st})
}

func (e *Executor) snapshot(taskID string) model.TaskState {
	st, _ := e.reg.Get(taskID)
	return st
}

// progressPercent 字节口径优先，总大小未知时退化为单元口径。
// 非终态期间钳在 99：100 只属于 completed。
func progressPercent(transferred int64, totalBytes *int64, completedItems, totalItems int) int {
	var pct int
	switch {
	case totalBytes != nil && *totalBytes > 0:
		pct = int(transferred * 100 / *totalBytes)
	case totalItems > 0:
		pct = completedItems * 100 / totalItems
	default:
		return 0
	}
	if pct > 99 {
		pct = 99
	}
	return pct
}
