package cancel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_AllocateSignal(t *testing.T) {
	ctrl := NewController()

	ctx := ctrl.Allocate(context.Background(), "task-1", 1)
	require.NoError(t, ctx.Err(), "新分配的令牌不应处于取消态")
	assert.False(t, ctrl.IsSignaled("task-1"))

	err := ctrl.Signal("task-1")
	require.NoError(t, err)
	assert.True(t, ctrl.IsSignaled("task-1"), "Signal 后应可观察到取消")
	assert.ErrorIs(t, ctx.Err(), context.Canceled, "执行器持有的 context 应被取消")

	// 重复取消是幂等 no-op
	err = ctrl.Signal("task-1")
	assert.NoError(t, err, "重复 Signal 不应报错")
}

func TestController_SignalUnknown(t *testing.T) {
	ctrl := NewController()

	err := ctrl.Signal("ghost")
	assert.ErrorIs(t, err, ErrNotFound, "未知 task_id 应返回 ErrNotFound")
	assert.False(t, ctrl.IsSignaled("ghost"), "未知 id 视为未取消")
}

func TestController_Release(t *testing.T) {
	ctrl := NewController()

	ctx := ctrl.Allocate(context.Background(), "task-1", 1)
	ctrl.Release("task-1", 1)

	// 释放会顺带取消，避免 context 泄漏
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	// 释放后令牌不复存在
	err := ctrl.Signal("task-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestController_ParentCancelCascades(t *testing.T) {
	ctrl := NewController()

	parent, cancelParent := context.WithCancel(context.Background())
	ctx1 := ctrl.Allocate(parent, "task-1", 1)
	ctx2 := ctrl.Allocate(parent, "task-2", 2)

	cancelParent()

	assert.ErrorIs(t, ctx1.Err(), context.Canceled, "父 context 取消应级联到所有任务")
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
}

func TestController_SignalAll(t *testing.T) {
	ctrl := NewController()

	ctx1 := ctrl.Allocate(context.Background(), "task-1", 1)
	ctx2 := ctrl.Allocate(context.Background(), "task-2", 2)

	ctrl.SignalAll()

	assert.ErrorIs(t, ctx1.Err(), context.Canceled)
	assert.ErrorIs(t, ctx2.Err(), context.Canceled)
}

func TestController_ReallocateCancelsOld(t *testing.T) {
	ctrl := NewController()

	old := ctrl.Allocate(context.Background(), "task-1", 1)
	fresh := ctrl.Allocate(context.Background(), "task-1", 2)

	assert.ErrorIs(t, old.Err(), context.Canceled, "旧令牌应被取消释放")
	assert.NoError(t, fresh.Err(), "新令牌应可正常使用")
}

func TestController_StaleReleaseKeepsFreshToken(t *testing.T) {
	ctrl := NewController()

	_ = ctrl.Allocate(context.Background(), "task-1", 1)
	fresh := ctrl.Allocate(context.Background(), "task-1", 2)

	// 旧一代执行协程退出时的 Release 不得撤销新一代的令牌
	ctrl.Release("task-1", 1)

	assert.NoError(t, fresh.Err(), "新令牌应仍然有效")
	require.NoError(t, ctrl.Signal("task-1"), "新令牌仍应可被取消")
	assert.ErrorIs(t, fresh.Err(), context.Canceled)
}
