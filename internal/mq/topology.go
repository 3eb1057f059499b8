package mq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Имена exchanges, очередей и routing keys.
//
// Контракт разделяется ingester'ом и orchestrator'ом: оба объявляют
// топологию идемпотентно, порядок старта процессов не важен.
const (
	// ExchangeEvents — основной topic exchange для задач.
	ExchangeEvents = "agent_events"

	// ExchangeDLQ — direct exchange для dead letter очереди.
	ExchangeDLQ = "agent_events_dlq"

	// QueueOrchestrator — рабочая очередь orchestrator'а.
	QueueOrchestrator = "orchestrator_queue"

	// QueueDLQ — dead letter очередь (и её routing key).
	QueueDLQ = "task.dlq"

	// RoutingKeyTaskCreated — ключ публикации новых задач.
	RoutingKeyTaskCreated = "task.created"

	// RetryHeader — заголовок сообщения со счётчиком попыток.
	RetryHeader = "x-retry-count"
)

// DeclareTopology объявляет exchanges, очереди и bindings.
//
// Все объявления durable и идемпотентны: повторное объявление
// с теми же свойствами безопасно.
func DeclareTopology(conn *Connection) error {
	ch := conn.Channel()
	if ch == nil {
		return ErrNotConnected
	}

	// DLQ инфраструктура
	if err := ch.ExchangeDeclare(
		ExchangeDLQ, // name
		"direct",    // type
		true,        // durable
		false,       // auto-deleted
		false,       // internal
		false,       // no-wait
		nil,         // arguments
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeDLQ, err)
	}

	if _, err := ch.QueueDeclare(
		QueueDLQ, // name
		true,     // durable
		false,    // delete when unused
		false,    // exclusive
		false,    // no-wait
		nil,      // arguments
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", QueueDLQ, err)
	}

	if err := ch.QueueBind(QueueDLQ, QueueDLQ, ExchangeDLQ, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", QueueDLQ, err)
	}

	// Основной exchange и рабочая очередь
	if err := ch.ExchangeDeclare(
		ExchangeEvents,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
	}

	if _, err := ch.QueueDeclare(
		QueueOrchestrator,
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("declare queue %s: %w", QueueOrchestrator, err)
	}

	if err := ch.QueueBind(QueueOrchestrator, RoutingKeyTaskCreated, ExchangeEvents, false, nil); err != nil {
		return fmt.Errorf("bind queue %s: %w", QueueOrchestrator, err)
	}

	return nil
}

// retryCountFrom извлекает счётчик попыток из заголовков.
// Отсутствующий или нечитаемый заголовок трактуется как 0.
func retryCountFrom(headers amqp.Table) int {
	if headers == nil {
		return 0
	}

	switch v := headers[RetryHeader].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}
