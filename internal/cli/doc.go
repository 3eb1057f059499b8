// Package cli — команды инструмента anton.
//
// Команды:
//   - dlq   — просмотр и replay dead letter очереди (напрямую через AMQP)
//   - tasks — запросы к архиву задач (Postgres)
package cli
