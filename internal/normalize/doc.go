// Package normalize преобразует сырые webhook payload'ы вендоров
// в каноническую AgentTask.
//
// Структура:
//   - normalizer.go — интерфейс Normalizer и Registry
//   - jira.go       — нормализатор Jira issue events
//   - datadog.go    — нормализатор Datadog alerts
//   - sonar.go      — нормализатор SonarCloud quality gate events
//
// Каждый нормализатор терпим к частично отсутствующим полям
// (подставляет документированные значения по умолчанию), но payload,
// не проходящий структурную валидацию, отклоняется с
// ErrMalformedPayload.
package normalize
