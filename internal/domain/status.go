package domain

// TaskStatus — статус задачи в архиве.
//
// Жизненный цикл:
//
//	RECEIVED → DISPATCHED
//	         ↘ DEAD_LETTERED (после исчерпания retry)
//
// Архив — учётная запись для аудита и CLI; решения о retry/DLQ
// принимает state machine оркестратора по заголовку сообщения,
// а не по этим статусам.
type TaskStatus string

const (
	// TaskStatusReceived — задача нормализована и опубликована.
	TaskStatusReceived TaskStatus = "RECEIVED"

	// TaskStatusDispatched — Job создан в Kubernetes.
	TaskStatusDispatched TaskStatus = "DISPATCHED"

	// TaskStatusDeadLettered — задача ушла в DLQ после max retries.
	TaskStatusDeadLettered TaskStatus = "DEAD_LETTERED"
)

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusDispatched, TaskStatusDeadLettered:
		return true
	default:
		return false
	}
}
