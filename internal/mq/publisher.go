package mq

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует задачи в agent_events и их копии в DLQ.
//
// Все сообщения персистентные (переживают рестарт брокера) с
// content-type application/json. Успешный Publish означает, что
// брокер принял сообщение; подтверждения consumer'а не ждём.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher поверх существующего соединения.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// PublishTaskCreated публикует сериализованную AgentTask
// на routing key task.created. Заголовок retry не ставится —
// отсутствие трактуется consumer'ом как 0.
func (p *Publisher) PublishTaskCreated(ctx context.Context, body []byte) error {
	return p.publish(ctx, ExchangeEvents, RoutingKeyTaskCreated, body, nil)
}

// PublishRetry публикует копию тела с инкрементированным счётчиком
// попыток обратно в основной exchange.
func (p *Publisher) PublishRetry(ctx context.Context, body []byte, retryCount int) error {
	headers := amqp.Table{RetryHeader: int32(retryCount)}
	if err := p.publish(ctx, ExchangeEvents, RoutingKeyTaskCreated, body, headers); err != nil {
		return err
	}

	p.logger.Info("republished for retry", "retry", retryCount)
	return nil
}

// PublishDLQ публикует копию тела в dead letter exchange.
// Заголовок несёт финальный счётчик попыток для аудита.
func (p *Publisher) PublishDLQ(ctx context.Context, body []byte, retryCount int) error {
	headers := amqp.Table{RetryHeader: int32(retryCount)}
	if err := p.publish(ctx, ExchangeDLQ, QueueDLQ, body, headers); err != nil {
		return err
	}

	p.logger.Warn("message sent to DLQ", "retry", retryCount)
	return nil
}

// publish отправляет персистентное сообщение в указанный exchange.
func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, body []byte, headers amqp.Table) error {
	ch := p.conn.Channel()
	if ch == nil {
		return fmt.Errorf("%w: publish to %s", ErrNotConnected, exchange)
	}

	err := ch.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
	}

	p.logger.Debug("published message",
		"exchange", exchange,
		"routing_key", routingKey,
		"bytes", len(body),
	)

	return nil
}
