package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transferhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transferhub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务指标
	TasksStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transferhub_tasks_started_total",
			Help: "Total number of download tasks accepted",
		},
	)

	TasksCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transferhub_tasks_completed_total",
			Help: "Total number of download tasks reaching a terminal state",
		},
		[]string{"status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "transferhub_task_duration_seconds",
			Help:    "Download task duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		},
		[]string{"status"},
	)

	ActiveDownloads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "transferhub_active_downloads",
			Help: "Number of currently live download tasks",
		},
	)

	TransferBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transferhub_transfer_bytes_total",
			Help: "Total number of bytes transferred to the destination",
		},
	)

	// Reaper 指标
	OrphansReapedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "transferhub_orphans_reaped_total",
			Help: "Total number of orphaned tasks force-terminated by the reaper",
		},
	)

	// 错误指标
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transferhub_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "type"},
	)
)

// RecordHTTPRequest 记录 HTTP 请求
func RecordHTTPRequest(method, path string, status int, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTaskStarted 记录任务接受
func RecordTaskStarted() {
	TasksStartedTotal.Inc()
	ActiveDownloads.Inc()
}

// RecordTaskCompleted 记录任务进入终态
func RecordTaskCompleted(status string, duration float64) {
	TasksCompletedTotal.WithLabelValues(status).Inc()
	ActiveDownloads.Dec()
	if duration > 0 {
		TaskDuration.WithLabelValues(status).Observe(duration)
	}
}

// RecordTransfer 记录传输字节数
func RecordTransfer(bytes int64) {
	TransferBytesTotal.Add(float64(bytes))
}

// RecordOrphanReaped 记录 reaper 强制终止
func RecordOrphanReaped() {
	OrphansReapedTotal.Inc()
}

// RecordError 记录错误
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// statusClass 将 HTTP 状态码转为类别
func statusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
