package mq

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler — функция обработки одной доставки.
//
// Handler сам отвечает за ack/reject: consumer не трогает доставку
// после вызова. Ошибка возвращается только для логирования.
type Handler func(ctx context.Context, d *Delivery) error

// Delivery — доставленное сообщение.
//
// Пока доставка не подтверждена (Ack) и не отклонена (Reject),
// брокер не отдаст её другому consumer'у: заголовок retry
// неявно "заблокирован" текущим экземпляром.
type Delivery struct {
	raw amqp.Delivery
}

// Body возвращает тело сообщения (JSON-кодировка AgentTask).
func (d *Delivery) Body() []byte {
	return d.raw.Body
}

// RetryCount возвращает счётчик попыток из заголовка x-retry-count.
// Отсутствующий заголовок — 0.
func (d *Delivery) RetryCount() int {
	return retryCountFrom(d.raw.Headers)
}

// Ack подтверждает обработку: сообщение навсегда покидает очередь.
func (d *Delivery) Ack() error {
	return d.raw.Ack(false)
}

// Reject отклоняет доставку.
// requeue=true возвращает сообщение в очередь (shutdown),
// requeue=false убирает её без повторной доставки (перед republish).
func (d *Delivery) Reject(requeue bool) error {
	return d.raw.Reject(requeue)
}

// Consumer потребляет сообщения из orchestrator_queue.
//
// Prefetch фиксирован в 1: экземпляр обрабатывает строго одно
// сообщение за раз, что сериализует работу со счётчиком retry.
// Горизонтальное масштабирование — несколько экземпляров на одной
// очереди (competing consumers), без гарантии порядка между ними.
type Consumer struct {
	conn    *Connection
	logger  *slog.Logger
	queue   string
	handler Handler
}

// NewConsumer создаёт Consumer для указанной очереди.
func NewConsumer(conn *Connection, logger *slog.Logger, queue string, handler Handler) *Consumer {
	return &Consumer{
		conn:    conn,
		logger:  logger,
		queue:   queue,
		handler: handler,
	}
}

// Run запускает цикл потребления и блокируется до отмены контекста.
// Переживает разрывы соединения, перезапуская подписку.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to start consuming", "queue", c.queue, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				c.logger.Info("reconnected, restarting consumer", "queue", c.queue)
				continue
			}
		}

		c.logger.Info("consumer started", "queue", c.queue)

		if err := c.drain(ctx, deliveries); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect", "queue", c.queue)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-c.conn.ReconnectNotify():
				continue
			}
		}
	}
}

// subscribe устанавливает prefetch=1 и начинает потребление.
func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, ErrNotConnected
	}

	// Ровно одно необработанное сообщение на экземпляр
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	deliveries, err := ch.Consume(
		c.queue, // queue
		"",      // consumer tag (auto-generated)
		false,   // auto-ack (подтверждаем вручную)
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume: %w", err)
	}

	return deliveries, nil
}

// drain передаёт доставки handler'у до закрытия канала или отмены.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case raw, ok := <-deliveries:
			if !ok {
				return ErrDeliveriesClosed
			}

			if err := c.handler(ctx, &Delivery{raw: raw}); err != nil {
				c.logger.Error("handler failed", "queue", c.queue, "error", err)
			}
		}
	}
}
