package cancel

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound 未知 task_id
var ErrNotFound = errors.New("cancel token 不存在")

// Controller 每任务一个协作式停止信号。
// 取消只在单元边界被执行器观察，不会强行中断进行中的传输调用。
type Controller struct {
	mu     sync.Mutex
	tokens map[string]*token // key: task_id
}

type token struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
}

func NewController() *Controller {
	return &Controller{
		tokens: map[string]*token{},
	}
}

// Allocate 为 taskID 的一次执行分配取消令牌，返回执行器应监听的
// context。gen 是 Registry 发放的执行代，释放时校验归属。
// parent 取消（进程退出）会级联取消所有任务。
func (c *Controller) Allocate(parent context.Context, taskID string, gen uint64) context.Context {
	ctx, cancelFn := context.WithCancel(parent)

	c.mu.Lock()
	defer c.mu.Unlock()

	// 旧执行残留的同名令牌直接取消，旧 goroutine 就此收到停止信号
	if old, ok := c.tokens[taskID]; ok {
		old.cancel()
	}
	c.tokens[taskID] = &token{ctx: ctx, cancel: cancelFn, gen: gen}
	return ctx
}

// Signal 发出取消信号。幂等：重复取消是 no-op。
func (c *Controller) Signal(taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.tokens[taskID]
	if !ok {
		return ErrNotFound
	}
	t.cancel()
	return nil
}

// IsSignaled 查询是否已被取消。未知 id 视为未取消。
func (c *Controller) IsSignaled(taskID string) bool {
	c.mu.Lock()
	t, ok := c.tokens[taskID]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return t.ctx.Err() != nil
}

// Release 执行器观察到终态后释放令牌。只释放本代的令牌：
// 旧代执行器迟到的释放不能吊销新执行的令牌。
func (c *Controller) Release(taskID string, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.tokens[taskID]; ok && t.gen == gen {
		t.cancel()
		delete(c.tokens, taskID)
	}
}

// SignalAll 取消所有在途任务（优雅关闭时使用）。
func (c *Controller) SignalAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.tokens {
		t.cancel()
	}
}
