package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/azhengyongqin/transfer-hub/internal/model"
)

var (
	// ErrNotFound 任务不存在
	ErrNotFound = errors.New("task 不存在")
	// ErrAlreadyRunning 同一 task_id 已有未结束的执行
	ErrAlreadyRunning = errors.New("task 正在执行中")
	// ErrStillRunning 清理未结束的任务是调用方错误，不静默容忍
	ErrStillRunning = errors.New("task 尚未结束，禁止清理")
	// ErrTerminal 终态不允许被覆盖
	ErrTerminal = errors.New("task 已进入终态")
	// ErrStaleGeneration 旧代执行器的写入：条目已归属新的一次执行
	ErrStaleGeneration = errors.New("执行代已过期")
)

// entry 单个任务的存储单元。mu 串行化同一 task_id 的写入；
// 不同 task_id 的写入互不阻塞（外层 map 锁只保护 map 结构本身）。
// gen 标记条目归属哪一代执行：终态条目被替换后，旧代执行器
// 残留的 goroutine 不能再写到新条目上。
type entry struct {
	mu    sync.Mutex
	gen   uint64
	state model.TaskState
}

// Registry 任务注册表，进程内唯一事实来源。
// 允许执行器、HTTP handler 与 reaper 并发访问。
type Registry struct {
	mu      sync.RWMutex
	nextGen uint64
	items   map[string]*entry // key: task_id
}

func New() *Registry {
	return &Registry{
		items: map[string]*entry{},
	}
}

// Create 为新任务创建 pending 条目，返回条目的执行代。
// 已存在未结束条目时返回 ErrAlreadyRunning；遗留的终态条目会被新条目替换
// （与清理后重新下载等价，条目本身不会被复活）。
func (r *Registry) Create(taskID string, now time.Time) (model.TaskState, uint64, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return model.TaskState{}, 0, errors.New("task_id 不能为空")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.items[taskID]; ok {
		e.mu.Lock()
		terminal := e.state.Status.Terminal()
		e.mu.Unlock()
		if !terminal {
			return model.TaskState{}, 0, ErrAlreadyRunning
		}
	}

	r.nextGen++
	gen := r.nextGen

	startedAt := now
	st := model.TaskState{
		TaskID:    taskID,
		Status:    model.TaskStatusPending,
		StartedAt: &startedAt,
	}
	r.items[taskID] = &entry{gen: gen, state: st}
	return st.Clone(), gen, nil
}

// Upsert 非归属写入方（reaper 的强制终态化等）的状态变更入口。
// 执行器一律走 UpsertOwned。
func (r *Registry) Upsert(taskID string, mutate func(*model.TaskState)) (model.TaskState, error) {
	return r.upsert(taskID, 0, false, mutate)
}

// UpsertOwned 执行器的状态变更入口：携带 Create 时取得的执行代。
// 条目被替换（清理后重启）后，旧代执行器的写入返回 ErrStaleGeneration，
// 保证同一 task_id 的新执行不会被残留 goroutine 终态化。
func (r *Registry) UpsertOwned(taskID string, gen uint64, mutate func(*model.TaskState)) (model.TaskState, error) {
	return r.upsert(taskID, gen, true, mutate)
}

// upsert mutate 在持有该条目锁的情况下执行，对同一 task_id 的变更
// 全序排列。集中强制不变式：
// - 旧代写入方被拒绝（owned 时校验执行代）
// - 终态不可覆盖（已终态的条目拒绝任何变更并返回 ErrTerminal）
// - 非终态期间 progress_percent 单调不减
func (r *Registry) upsert(taskID string, gen uint64, owned bool, mutate func(*model.TaskState)) (model.TaskState, error) {
	r.mu.RLock()
	e, ok := r.items[taskID]
	r.mu.RUnlock()
	if !ok {
		return model.TaskState{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if owned && e.gen != gen {
		return e.state.Clone(), ErrStaleGeneration
	}

	if e.state.Status.Terminal() {
		return e.state.Clone(), ErrTerminal
	}

	prevProgress := e.state.ProgressPercent
	prevCompletedAt := e.state.CompletedAt
	mutate(&e.state)

	// 进度回退只可能来自错误的写入方，直接钳回
	if !e.state.Status.Terminal() && e.state.ProgressPercent < prevProgress {
		e.state.ProgressPercent = prevProgress
	}
	// completed_at 只在终态迁移时被设置一次
	if !e.state.Status.Terminal() {
		e.state.CompletedAt = prevCompletedAt
	}

	return e.state.Clone(), nil
}

// Get 返回任务状态的副本
func (r *Registry) Get(taskID string) (model.TaskState, bool) {
	r.mu.RLock()
	e, ok := r.items[taskID]
	r.mu.RUnlock()
	if !ok {
		return model.TaskState{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), true
}

// List 返回所有任务状态的副本
func (r *Registry) List() []model.TaskState {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.items))
	for _, e := range r.items {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	out := make([]model.TaskState, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.state.Clone())
		e.mu.Unlock()
	}

	// 按 task_id 排序
	sort.Slice(out, func(i, j int) bool {
		return out[i].TaskID < out[j].TaskID
	})

	return out
}

// Remove 删除终态任务的条目。未结束的任务返回 ErrStillRunning，
// 保证执行器还可能写入时条目不会被移除。
func (r *Registry) Remove(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.items[taskID]
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	terminal := e.state.Status.Terminal()
	e.mu.Unlock()
	if !terminal {
		return ErrStillRunning
	}

	delete(r.items, taskID)
	return nil
}
