package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrShuttingDown — процесс завершается, доставка возвращена
	// в очередь без обработки.
	ErrShuttingDown = errors.New("orchestrator is shutting down")

	// ErrDecode — тело сообщения не декодируется в AgentTask.
	// Обрабатывается как обычная ошибка процессинга (retry до потолка).
	ErrDecode = errors.New("decode task")
)
