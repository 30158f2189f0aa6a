package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var (
	// ErrNotFound 未知 task_id
	ErrNotFound = errors.New("task 不存在")
	// ErrAlreadyRunning 同一 task_id 已有未结束的执行
	ErrAlreadyRunning = errors.New("task 正在执行中")
	// ErrStillRunning 未结束的任务不能清理
	ErrStillRunning = errors.New("task 尚未结束")
)

var (
	envLoaded bool
	envLoadMu sync.Mutex
)

func init() {
	// 在包初始化时尝试加载 .env 文件
	_ = loadEnvFile()
}

// loadEnvFile 尝试从项目根目录加载 .env 文件
// 会尝试多个可能的路径，找到第一个存在的 .env 文件
func loadEnvFile() error {
	envLoadMu.Lock()
	defer envLoadMu.Unlock()

	if envLoaded {
		return nil
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	// 尝试多个可能的 .env 文件路径（按优先级）
	possiblePaths := []string{
		filepath.Join(wd, ".env"),
		filepath.Join(wd, "..", ".env"),
		filepath.Join(wd, "..", "..", ".env"),
	}

	var envPath string
	for _, path := range possiblePaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}
		if _, err := os.Stat(absPath); err == nil {
			envPath = absPath
			break
		}
	}

	// 如果没有找到 .env 文件，返回 nil（允许通过环境变量配置）
	if envPath == "" {
		envLoaded = true
		return nil
	}

	if err := godotenv.Load(envPath); err != nil {
		return err
	}

	envLoaded = true
	return nil
}

// Client HTTP 客户端，用于与 hub 通信
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient 创建客户端。baseURL 为空时取 TRANSFER_HUB_URL 环境变量。
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("TRANSFER_HUB_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:28090"
	}
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// StartTaskRequest 任务启动请求
type StartTaskRequest struct {
	TaskID string   `json:"task_id,omitempty"`
	Prefix string   `json:"prefix,omitempty"`
	Keys   []string `json:"keys,omitempty"`
}

// StartTaskResponse 任务启动响应
type StartTaskResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// StartTask 启动下载任务。服务端已有未结束执行时返回 ErrAlreadyRunning。
func (c *Client) StartTask(ctx context.Context, req StartTaskRequest) (*StartTaskResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/tasks", c.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusConflict:
		return nil, ErrAlreadyRunning
	default:
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result StartTaskResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// GetProgress 获取单个任务状态
func (c *Client) GetProgress(ctx context.Context, taskID string) (*TaskState, error) {
	url := fmt.Sprintf("%s/api/v1/tasks/%s", c.BaseURL, taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Item TaskState `json:"item"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result.Item, nil
}

// GetAllProgress 获取全量任务快照（重连后的对账入口）
func (c *Client) GetAllProgress(ctx context.Context) ([]TaskState, error) {
	url := fmt.Sprintf("%s/api/v1/tasks", c.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Items []TaskState `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Items, nil
}

// CancelTask 请求取消任务。对已终态的任务同样返回成功。
func (c *Client) CancelTask(ctx context.Context, taskID string) error {
	url := fmt.Sprintf("%s/api/v1/tasks/%s/cancel", c.BaseURL, taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// CleanupTask 清理终态任务条目
func (c *Client) CleanupTask(ctx context.Context, taskID string) error {
	url := fmt.Sprintf("%s/api/v1/tasks/%s", c.BaseURL, taskID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrStillRunning
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}

// ConnectionResult 连接测试结论
type ConnectionResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TestConnection 测试 hub 的对象存储连接
func (c *Client) TestConnection(ctx context.Context) (*ConnectionResult, error) {
	url := fmt.Sprintf("%s/api/v1/connection/test", c.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result ConnectionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}
