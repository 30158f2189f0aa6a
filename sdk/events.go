package sdk

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TaskEvent 推送给订阅方的任务事件
type TaskEvent struct {
	// Kind 取值 progress / completed / snapshot
	// snapshot 表示来自全量对账的状态，订阅方应以其覆盖本地缓存
	Kind string
	Task TaskState
}

// SubscribeOptions 订阅参数
type SubscribeOptions struct {
	// ReconnectInterval 断线后的重连间隔，默认 3s
	ReconnectInterval time.Duration
	// Buffer 事件通道缓冲大小，默认 64
	Buffer int
}

// Subscribe 订阅任务事件流。
// 每次（重）连接先拉取全量快照做对账，再消费 SSE 增量事件，
// 推送事件属于提示性质，真实状态以快照为准。
// ctx 结束后通道关闭，调用方无需显式退订。
func (c *Client) Subscribe(ctx context.Context, opts SubscribeOptions) <-chan TaskEvent {
	if opts.ReconnectInterval <= 0 {
		opts.ReconnectInterval = 3 * time.Second
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 64
	}

	out := make(chan TaskEvent, opts.Buffer)

	go func() {
		defer close(out)
		for {
			if err := c.streamOnce(ctx, out); err != nil {
				if ctx.Err() != nil {
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(opts.ReconnectInterval):
			}
		}
	}()

	return out
}

// streamOnce 执行一轮「对账 + 消费事件流」，连接断开时返回
func (c *Client) streamOnce(ctx context.Context, out chan<- TaskEvent) error {
	// 先对账：连接建立前丢失的事件由全量快照补齐
	items, err := c.GetAllProgress(ctx)
	if err != nil {
		return fmt.Errorf("reconcile snapshot: %w", err)
	}
	for _, item := range items {
		select {
		case out <- TaskEvent{Kind: "snapshot", Task: item}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	url := fmt.Sprintf("%s/api/v1/events", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// SSE 是长连接，不能套用客户端默认超时
	httpClient := &http.Client{Timeout: 0}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var eventKind string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event:"):
			eventKind = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			var task TaskState
			if err := json.Unmarshal([]byte(payload), &task); err != nil {
				// 坏帧跳过，不中断整条流
				eventKind = ""
				continue
			}
			kind := eventKind
			if kind == "" {
				kind = "progress"
			}
			select {
			case out <- TaskEvent{Kind: kind, Task: task}:
			case <-ctx.Done():
				return ctx.Err()
			}
			eventKind = ""
		case line == "":
			eventKind = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read event stream: %w", err)
	}
	return nil
}
