package transfer

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobSpec_Validate(t *testing.T) {
	assert.Error(t, JobSpec{}.Validate(), "prefix 与 keys 同时为空应被拒绝")
	assert.NoError(t, JobSpec{Prefix: "data/"}.Validate())
	assert.NoError(t, JobSpec{Keys: []string{"a.bin"}}.Validate())
	assert.NoError(t, JobSpec{Prefix: "data/", Keys: []string{"a.bin"}}.Validate())
}

func TestIsTransient(t *testing.T) {
	base := errors.New("连接被重置")

	assert.True(t, IsTransient(&TransientError{Err: base}))
	assert.False(t, IsTransient(&FatalError{Err: base}))
	assert.False(t, IsTransient(base), "未分类错误按不可恢复处理")
	assert.False(t, IsTransient(nil))

	// 包装后的 transient 仍可识别
	wrapped := fmt.Errorf("fetch a.bin: %w", &TransientError{Err: base})
	assert.True(t, IsTransient(wrapped))
}

func TestErrorUnwrap(t *testing.T) {
	base := errors.New("根因")

	te := &TransientError{Err: base}
	assert.ErrorIs(t, te, base, "Unwrap 应暴露根因")
	assert.Contains(t, te.Error(), "transient")

	fe := &FatalError{Err: base}
	assert.ErrorIs(t, fe, base)
	assert.Contains(t, fe.Error(), "fatal")
}
