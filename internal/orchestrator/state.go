package orchestrator

// MessageState — состояние сообщения в state machine.
type MessageState string

const (
	// StateReceived — доставка получена, обработка не начиналась
	// (в том числе после reject-requeue при shutdown).
	StateReceived MessageState = "received"

	// StateProcessing — идёт декодирование/классификация/dispatch.
	StateProcessing MessageState = "processing"

	// StateAcknowledged — обработка успешна, сообщение подтверждено
	// и навсегда покинуло очередь.
	StateAcknowledged MessageState = "acknowledged"

	// StateRetried — обработка не удалась, копия с инкрементированным
	// счётчиком опубликована заново.
	StateRetried MessageState = "retried"

	// StateDeadLettered — потолок попыток достигнут, копия ушла в DLQ,
	// оригинал подтверждён.
	StateDeadLettered MessageState = "dead-lettered"
)
