// Package repo — Postgres-архив жизненного цикла задач.
//
// Архив ведётся best-effort для аудита и CLI: записи не участвуют
// в гарантиях доставки (их даёт брокер), и ошибка записи никогда
// не влияет на решение ack/retry/DLQ.
package repo
