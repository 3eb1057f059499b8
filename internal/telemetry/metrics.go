package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики pipeline'а. Экспортируются через /metrics (promhttp)
// в обоих долгоживущих процессах.
var (
	// TasksIngested — принятые и опубликованные задачи, по источникам.
	TasksIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anton_tasks_ingested_total",
		Help: "Tasks normalized and published to the broker.",
	}, []string{"source"})

	// NormalizeFailures — отклонённые payload'ы (HTTP 400), по источникам.
	NormalizeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anton_normalize_failures_total",
		Help: "Webhook payloads rejected by normalization.",
	}, []string{"source"})

	// PublishFailures — неудачные публикации в брокер (HTTP 503).
	PublishFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "anton_publish_failures_total",
		Help: "Failed publishes to the broker.",
	})

	// MessagesProcessed — терминальные состояния сообщений
	// (acknowledged / retried / dead-lettered).
	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "anton_messages_processed_total",
		Help: "Messages by terminal state of the retry state machine.",
	}, []string{"state"})
)
