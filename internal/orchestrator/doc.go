// Package orchestrator реализует state machine обработки сообщений:
//
//	received → processing → acknowledged    (успех)
//	                      → retried         (ошибка, попытки остались)
//	                      → dead-lettered   (ошибка, потолок достигнут)
//
// Брокер, классификатор, диспетчер и архив абстрагированы
// интерфейсами, поэтому все переходы тестируются без живого RabbitMQ.
//
// Ошибки обработки одного сообщения никогда не роняют процесс —
// они конвертируются в решение retry-или-DLQ.
package orchestrator
