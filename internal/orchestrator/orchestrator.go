package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/shaiso/Anton/internal/domain"
	"github.com/shaiso/Anton/internal/telemetry"
)

// defaultMaxRetries — потолок попыток по умолчанию.
const defaultMaxRetries = 3

// Delivery — минимальный интерфейс доставленного сообщения.
// Реализуется mq.Delivery; в тестах — фейком.
type Delivery interface {
	Body() []byte
	RetryCount() int
	Ack() error
	Reject(requeue bool) error
}

// Broker — минимальный интерфейс брокера для republish-переходов.
type Broker interface {
	PublishRetry(ctx context.Context, body []byte, retryCount int) error
	PublishDLQ(ctx context.Context, body []byte, retryCount int) error
}

// Classifier превращает AgentTask в RouterPlan.
type Classifier interface {
	Route(ctx context.Context, task *domain.AgentTask) (*domain.RouterPlan, error)
}

// Dispatcher отправляет пару (task, plan) на исполнение.
// Возвращает имя созданного Job.
type Dispatcher interface {
	Dispatch(ctx context.Context, task *domain.AgentTask, plan *domain.RouterPlan) (string, error)
}

// Archive — учёт жизненного цикла задач (best-effort).
type Archive interface {
	MarkDispatched(ctx context.Context, taskID uuid.UUID, jobName string) error
	MarkRetried(ctx context.Context, taskID uuid.UUID, attempts int, lastError string) error
	MarkDeadLettered(ctx context.Context, taskID uuid.UUID, attempts int, lastError string) error
}

// Orchestrator — state machine обработки задач.
//
// Один экземпляр обрабатывает строго одно сообщение за раз
// (prefetch=1 на стороне consumer'а), что сериализует мутацию
// счётчика retry. Несколько экземпляров конкурируют за одну
// очередь без гарантии порядка между собой.
type Orchestrator struct {
	broker     Broker
	classifier Classifier
	dispatcher Dispatcher
	archive    Archive // может быть nil
	maxRetries int

	logger *slog.Logger

	shutdown   bool
	shutdownMu sync.RWMutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	Broker     Broker
	Classifier Classifier
	Dispatcher Dispatcher

	// Archive — опционально; nil отключает учёт.
	Archive Archive

	// MaxRetries — потолок попыток (default: 3).
	MaxRetries int

	Logger *slog.Logger
}

// New создаёт Orchestrator.
func New(cfg Config) *Orchestrator {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		broker:     cfg.Broker,
		classifier: cfg.Classifier,
		dispatcher: cfg.Dispatcher,
		archive:    cfg.Archive,
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Shutdown переводит оркестратор в режим завершения: новые доставки
// возвращаются в очередь без обработки и без инкремента retry.
func (o *Orchestrator) Shutdown() {
	o.shutdownMu.Lock()
	o.shutdown = true
	o.shutdownMu.Unlock()
}

// IsShuttingDown проверяет режим завершения.
func (o *Orchestrator) IsShuttingDown() bool {
	o.shutdownMu.RLock()
	defer o.shutdownMu.RUnlock()
	return o.shutdown
}

// HandleDelivery проводит одно сообщение через state machine
// и возвращает его терминальное состояние.
//
// Ошибки декодирования, классификации и dispatch'а равнозначны:
// все ведут в retry-или-DLQ решение. Сообщение никогда не теряется
// молча — либо ack после успеха, либо копия в DLQ после потолка.
func (o *Orchestrator) HandleDelivery(ctx context.Context, d Delivery) (MessageState, error) {
	if o.IsShuttingDown() {
		// Вернуть в очередь — подхватит другой экземпляр
		// (или этот же после рестарта). Счётчик не трогаем.
		if err := d.Reject(true); err != nil {
			return StateReceived, fmt.Errorf("requeue on shutdown: %w", err)
		}
		return StateReceived, ErrShuttingDown
	}

	retryCount := d.RetryCount()

	var task domain.AgentTask
	if err := json.Unmarshal(d.Body(), &task); err != nil {
		return o.fail(ctx, d, nil, retryCount, fmt.Errorf("%w: %v", ErrDecode, err))
	}

	logger := telemetry.WithTaskID(o.logger, task.TaskID.String())
	logger.Info("processing task",
		"source", task.Source,
		"priority", task.Priority,
		"retry", retryCount,
	)

	plan, err := o.classifier.Route(ctx, &task)
	if err != nil {
		return o.fail(ctx, d, &task, retryCount, err)
	}

	jobName, err := o.dispatcher.Dispatch(ctx, &task, plan)
	if err != nil {
		return o.fail(ctx, d, &task, retryCount, err)
	}

	if o.archive != nil {
		if err := o.archive.MarkDispatched(ctx, task.TaskID, jobName); err != nil {
			logger.Warn("failed to update archive", "error", err)
		}
	}

	if err := d.Ack(); err != nil {
		return StateProcessing, fmt.Errorf("ack: %w", err)
	}

	telemetry.MessagesProcessed.WithLabelValues(string(StateAcknowledged)).Inc()
	logger.Info("task dispatched", "job", jobName, "template", plan.TemplateID)

	return StateAcknowledged, nil
}

// fail обрабатывает ошибку процессинга: DLQ при достигнутом потолке,
// иначе republish с инкрементированным счётчиком.
func (o *Orchestrator) fail(ctx context.Context, d Delivery, task *domain.AgentTask, retryCount int, cause error) (MessageState, error) {
	logger := o.logger
	if task != nil {
		logger = telemetry.WithTaskID(o.logger, task.TaskID.String())
	}

	// Ошибка вызвана завершением процесса, а не самой задачей:
	// сигнал пришёл посреди обработки и оборвал контекст. Вернуть
	// сообщение в очередь без инкремента — как при shutdown до
	// начала обработки.
	if o.IsShuttingDown() || (ctx.Err() != nil && errors.Is(cause, context.Canceled)) {
		logger.Info("shutdown interrupted processing, requeueing", "retry", retryCount)
		if err := d.Reject(true); err != nil {
			return StateReceived, fmt.Errorf("requeue on shutdown: %w", err)
		}
		return StateReceived, ErrShuttingDown
	}

	logger.Error("failed to process message", "retry", retryCount, "error", cause)

	if retryCount+1 >= o.maxRetries {
		// Сначала копия в DLQ, потом ack оригинала — сообщение
		// не должно снова появиться в живой очереди.
		if err := o.broker.PublishDLQ(ctx, d.Body(), retryCount); err != nil {
			// DLQ недоступна — вернуть доставку в очередь,
			// чтобы не потерять сообщение.
			if rejectErr := d.Reject(true); rejectErr != nil {
				return StateProcessing, fmt.Errorf("publish to DLQ: %w (requeue also failed: %v)", err, rejectErr)
			}
			return StateProcessing, fmt.Errorf("publish to DLQ: %w", err)
		}

		if task != nil && o.archive != nil {
			if err := o.archive.MarkDeadLettered(ctx, task.TaskID, retryCount+1, cause.Error()); err != nil {
				logger.Warn("failed to update archive", "error", err)
			}
		}

		if err := d.Ack(); err != nil {
			return StateDeadLettered, fmt.Errorf("ack after DLQ: %w", err)
		}

		telemetry.MessagesProcessed.WithLabelValues(string(StateDeadLettered)).Inc()
		return StateDeadLettered, nil
	}

	// Убираем оригинал без requeue (иначе брокер вернёт его
	// немедленно и дословно), затем публикуем копию с retry+1.
	if err := d.Reject(false); err != nil {
		return StateProcessing, fmt.Errorf("reject: %w", err)
	}

	if err := o.broker.PublishRetry(ctx, d.Body(), retryCount+1); err != nil {
		return StateProcessing, fmt.Errorf("republish for retry: %w", err)
	}

	if task != nil && o.archive != nil {
		if err := o.archive.MarkRetried(ctx, task.TaskID, retryCount+1, cause.Error()); err != nil {
			logger.Warn("failed to update archive", "error", err)
		}
	}

	telemetry.MessagesProcessed.WithLabelValues(string(StateRetried)).Inc()
	return StateRetried, nil
}
