package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	HTTP       HTTPConfig
	Download   DownloadConfig
	Reaper     ReaperConfig
	S3         S3Config
	Monitoring MonitoringConfig
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Addr string
}

// DownloadConfig 下载执行器配置（重试/退避/进度事件节流）
type DownloadConfig struct {
	Dir              string
	RetryLimit       int
	BackoffBase      time.Duration
	ProgressInterval time.Duration
}

// ReaperConfig 孤儿任务回收配置
type ReaperConfig struct {
	OrphanThreshold time.Duration
	SweepInterval   time.Duration
	Grace           time.Duration
}

// S3Config 对象存储配置
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Enabled bool
}

// Load 加载配置
func Load() (*Config, error) {
	v := viper.New()

	// 设置配置文件名和路径
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")

	// 允许从环境变量读取（优先级最高）
	v.AutomaticEnv()

	// 读取配置文件（如果存在）
	_ = v.ReadInConfig() // 忽略错误，因为可能只使用环境变量

	cfg := &Config{}

	// HTTP 配置
	cfg.HTTP.Addr = v.GetString("HTTP_ADDR")
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":28090"
	}

	// 下载配置
	cfg.Download.Dir = v.GetString("DOWNLOAD_DIR")
	if cfg.Download.Dir == "" {
		cfg.Download.Dir = "./downloads"
	}

	cfg.Download.RetryLimit = v.GetInt("RETRY_LIMIT")
	if cfg.Download.RetryLimit <= 0 {
		cfg.Download.RetryLimit = 3
	}

	cfg.Download.BackoffBase = time.Duration(v.GetInt("BACKOFF_BASE_MS")) * time.Millisecond
	if cfg.Download.BackoffBase <= 0 {
		cfg.Download.BackoffBase = 500 * time.Millisecond
	}

	cfg.Download.ProgressInterval = time.Duration(v.GetInt("PROGRESS_INTERVAL_MS")) * time.Millisecond
	if cfg.Download.ProgressInterval <= 0 {
		cfg.Download.ProgressInterval = 200 * time.Millisecond
	}

	// Reaper 配置
	cfg.Reaper.OrphanThreshold = time.Duration(v.GetInt("ORPHAN_THRESHOLD_MS")) * time.Millisecond
	if cfg.Reaper.OrphanThreshold <= 0 {
		cfg.Reaper.OrphanThreshold = time.Hour
	}

	cfg.Reaper.SweepInterval = time.Duration(v.GetInt("SWEEP_INTERVAL_MS")) * time.Millisecond
	if cfg.Reaper.SweepInterval <= 0 {
		cfg.Reaper.SweepInterval = time.Minute
	}

	cfg.Reaper.Grace = time.Duration(v.GetInt("REAP_GRACE_MS")) * time.Millisecond
	if cfg.Reaper.Grace <= 0 {
		cfg.Reaper.Grace = 5 * time.Second
	}

	// S3 配置
	cfg.S3.Endpoint = v.GetString("S3_ENDPOINT")
	cfg.S3.Region = v.GetString("S3_REGION")
	if cfg.S3.Region == "" {
		cfg.S3.Region = "us-east-1"
	}
	cfg.S3.Bucket = v.GetString("S3_BUCKET")
	cfg.S3.AccessKeyID = v.GetString("S3_ACCESS_KEY_ID")
	cfg.S3.SecretAccessKey = v.GetString("S3_SECRET_ACCESS_KEY")
	cfg.S3.ForcePathStyle = v.GetBool("S3_FORCE_PATH_STYLE")

	// 监控配置
	cfg.Monitoring.Enabled = v.GetBool("MONITORING_ENABLED")

	return cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.S3.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required")
	}
	if c.Download.Dir == "" {
		return fmt.Errorf("DOWNLOAD_DIR is required")
	}
	if c.Reaper.Grace >= c.Reaper.OrphanThreshold {
		return fmt.Errorf("REAP_GRACE_MS must be smaller than ORPHAN_THRESHOLD_MS")
	}
	return nil
}
