// Package dispatch отправляет классифицированные задачи на исполнение
// в Kubernetes.
//
// Для каждой задачи создаются два объекта с детерминированными
// именами, прослеживаемыми до task_id:
//   - ConfigMap agent-ctx-<task_id> — контекст {task, plan} для агента
//   - Job agent-job-<task_id>       — собственно единица работы
//
// Структура:
//   - dispatcher.go — создание ConfigMap и Job
//   - template.go   — рендеринг Job-манифеста из шаблона
//   - janitor.go    — уборка завершённых Job'ов и их ConfigMap'ов
package dispatch
