// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация задач (включая retry и DLQ копии)
//   - consumer.go   — потребление из orchestrator_queue (prefetch=1)
//
// Wire-контракт:
//   - exchange agent_events (topic, durable), routing key task.created
//   - exchange agent_events_dlq (direct, durable), очередь task.dlq
//   - тело сообщения — JSON-кодировка domain.AgentTask
//   - заголовок x-retry-count (int, по умолчанию 0)
//   - content-type application/json, delivery mode persistent
package mq
