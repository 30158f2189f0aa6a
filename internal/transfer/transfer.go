package transfer

import (
	"context"
	"errors"
	"fmt"
)

// JobSpec 描述一个下载作业：显式给出对象 key 列表，或给出前缀由
// 能力方列举。二者至少其一非空。
type JobSpec struct {
	Prefix string   `json:"prefix,omitempty"`
	Keys   []string `json:"keys,omitempty"`
}

func (s JobSpec) Validate() error {
	if s.Prefix == "" && len(s.Keys) == 0 {
		return errors.New("prefix 与 keys 不能同时为空")
	}
	return nil
}

// Item 一个传输单元（通常对应一个对象）。Size 未知时为 -1。
type Item struct {
	Key  string
	Size int64
}

// Capability 字节搬运能力。执行器只通过它接触对象存储；
// 重试策略属于执行器，能力方只负责把错误分类为 transient/fatal。
type Capability interface {
	// ListItems 解析作业元数据，返回全部传输单元
	ListItems(ctx context.Context, spec JobSpec) ([]Item, error)

	// FetchItem 把单个单元完整落到 destPath，返回写入字节数。
	// 失败时目标路径不得留下半成品。
	FetchItem(ctx context.Context, item Item, destPath string) (int64, error)

	// TestConnection 探测对象存储可达性，返回面向用户的结论
	TestConnection(ctx context.Context) ConnectionResult
}

// ConnectionResult 连接测试结论
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TransientError 可重试错误（网络抖动、超时、服务端 5xx）。
// 被执行器的重试环吸收，重试耗尽后升级为任务失败。
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// FatalError 不可恢复错误（对象不存在、权限不足、目标写入失败）。
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return fmt.Sprintf("fatal: %v", e.Err) }
func (e *FatalError) Unwrap() error { return e.Err }

// IsTransient 判断错误是否可重试。未分类的错误按不可恢复处理。
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
