package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/shaiso/Anton/internal/domain"
	"github.com/shaiso/Anton/internal/mq"
)

// dlqEntry — запись DLQ для вывода.
type dlqEntry struct {
	TaskID     string `json:"task_id"`
	Source     string `json:"source"`
	Priority   string `json:"priority"`
	Title      string `json:"title"`
	RetryCount int    `json:"retry_count"`
}

// NewDLQCmd создаёт группу команд для работы с dead letter очередью.
func NewDLQCmd(mqURLFn func() string, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dlq",
		Short: "Inspect and replay the dead letter queue",
	}

	cmd.AddCommand(
		newDLQListCmd(mqURLFn, outputFn),
		newDLQReplayCmd(mqURLFn, outputFn),
	)

	return cmd
}

func newDLQListCmd(mqURLFn func() string, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Peek messages in the DLQ (without consuming them)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			conn, ch, err := dialDLQ(mqURLFn())
			if err != nil {
				return err
			}
			defer conn.Close()

			var entries []dlqEntry
			var tags []uint64

			for len(entries) < limit {
				msg, ok, err := ch.Get(mq.QueueDLQ, false)
				if err != nil {
					return fmt.Errorf("get from DLQ: %w", err)
				}
				if !ok {
					break
				}

				tags = append(tags, msg.DeliveryTag)
				entries = append(entries, entryFrom(msg))
			}

			// Вернуть просмотренные сообщения обратно в очередь
			for _, tag := range tags {
				if err := ch.Nack(tag, false, true); err != nil {
					return fmt.Errorf("requeue DLQ message: %w", err)
				}
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{
					e.TaskID,
					e.Source,
					e.Priority,
					strconv.Itoa(e.RetryCount),
					truncate(e.Title, 60),
				}
			}

			out.Print([]string{"TASK ID", "SOURCE", "PRIORITY", "RETRIES", "TITLE"}, rows, entries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum messages to show")

	return cmd
}

func newDLQReplayCmd(mqURLFn func() string, outputFn func() *Output) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Republish DLQ messages to the main exchange with a fresh retry budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn()

			conn, ch, err := dialDLQ(mqURLFn())
			if err != nil {
				return err
			}
			defer conn.Close()

			replayed := 0
			for replayed < limit {
				msg, ok, err := ch.Get(mq.QueueDLQ, false)
				if err != nil {
					return fmt.Errorf("get from DLQ: %w", err)
				}
				if !ok {
					break
				}

				// Счётчик retry сбрасывается: replay получает
				// полный бюджет попыток заново
				err = ch.PublishWithContext(
					context.Background(),
					mq.ExchangeEvents,
					mq.RoutingKeyTaskCreated,
					false,
					false,
					amqp.Publishing{
						ContentType:  "application/json",
						DeliveryMode: amqp.Persistent,
						Body:         msg.Body,
					},
				)
				if err != nil {
					// Сообщение остаётся в DLQ
					ch.Nack(msg.DeliveryTag, false, true)
					return fmt.Errorf("republish: %w", err)
				}

				if err := ch.Ack(msg.DeliveryTag, false); err != nil {
					return fmt.Errorf("ack replayed message: %w", err)
				}

				replayed++
			}

			out.Success(fmt.Sprintf("Replayed %d message(s)", replayed))
			if out.jsonMode {
				out.JSON(map[string]int{"replayed": replayed})
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum messages to replay")

	return cmd
}

// dialDLQ открывает соединение и объявляет топологию
// (на случай, если очереди ещё не существуют).
func dialDLQ(url string) (*mq.Connection, *amqp.Channel, error) {
	conn, err := mq.Dial(url, slog.New(slog.DiscardHandler))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}

	if err := mq.DeclareTopology(conn); err != nil {
		conn.Close()
		return nil, nil, err
	}

	ch := conn.Channel()
	if ch == nil {
		conn.Close()
		return nil, nil, mq.ErrNotConnected
	}

	return conn, ch, nil
}

// entryFrom декодирует AgentTask из тела; нечитаемое тело
// отображается с прочерками.
func entryFrom(msg amqp.Delivery) dlqEntry {
	entry := dlqEntry{
		TaskID:   "-",
		Source:   "-",
		Priority: "-",
		Title:    "(undecodable body)",
	}

	if msg.Headers != nil {
		if v, ok := msg.Headers[mq.RetryHeader].(int32); ok {
			entry.RetryCount = int(v)
		}
	}

	var task domain.AgentTask
	if err := json.Unmarshal(msg.Body, &task); err == nil {
		entry.TaskID = task.TaskID.String()
		entry.Source = string(task.Source)
		entry.Priority = string(task.Priority)
		entry.Title = task.Title
	}

	return entry
}
