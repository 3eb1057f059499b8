// Package api — HTTP ingress для вендорских webhook'ов.
//
// Структура:
//   - handler.go         — Handler с зависимостями
//   - routes.go          — маршруты и middleware chain
//   - middleware.go      — Recovery, Logging, проверка секрета
//   - webhook_handler.go — POST /webhooks/{jira,datadog,sonar}
//   - response.go        — JSON-ответы и коды ошибок
//
// Контракт: 202 с task_id при успехе, 400 при ошибке нормализации,
// 503 при недоступном брокере, 401 при неверном секрете.
package api
