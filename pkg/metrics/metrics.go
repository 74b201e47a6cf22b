package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12), // 10ms to ~40s
		},
		[]string{"routing_key", "queue"},
	)

	// LLM 调用延迟（毫秒）
	LLMCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_latency_ms",
			Help:    "Language model call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"model", "status"},
	)

	// Pipeline 各阶段耗时（秒）
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of each press release pipeline stage in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16), // 1ms to ~32s
		},
		[]string{"stage"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	SlowQueryCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
	)

	// 邮件处理计数
	EmailProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_processed_count",
			Help: "Total number of emails processed",
		},
		[]string{"status"}, // status: summarized, no_text, not_press_release, failed
	)

	ScrapeCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrape_count",
			Help: "Total number of press release pages scraped",
		},
		[]string{"status"},
	)

	StorageWriteCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_write_count",
			Help: "Total number of result records written per sink",
		},
		[]string{"sink", "status"},
	)

	NotificationRejectedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notification_rejected_count",
			Help: "Total number of inbound notifications rejected without a pipeline run",
		},
		[]string{"reason"},
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordLLMCallLatency 记录 LLM 调用延迟
func RecordLLMCallLatency(model, status string, duration time.Duration) {
	LLMCallLatency.WithLabelValues(model, status).Observe(float64(duration.Milliseconds()))
}

func RecordStageDuration(stage string, duration time.Duration) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// IncrementSlowQuery 记录一次慢查询
func IncrementSlowQuery(duration time.Duration) {
	SlowQueryCount.Inc()
	DBQueryDuration.WithLabelValues("slow", "unknown").Observe(duration.Seconds())
}

// IncrementEmailProcessed 增加邮件处理计数
func IncrementEmailProcessed(status string) {
	EmailProcessedCount.WithLabelValues(status).Inc()
}

func IncrementScrape(status string) {
	ScrapeCount.WithLabelValues(status).Inc()
}

func IncrementStorageWrite(sink, status string) {
	StorageWriteCount.WithLabelValues(sink, status).Inc()
}

func IncrementNotificationRejected(reason string) {
	NotificationRejectedCount.WithLabelValues(reason).Inc()
}
