package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты ingress API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	base := Chain(
		Recovery(h.logger),
		Logging(h.logger),
	)
	authed := Chain(
		Recovery(h.logger),
		Logging(h.logger),
		WebhookAuth(h.secret),
	)

	// Webhooks (за shared secret)
	mux.Handle("POST /webhooks/jira", authed(http.HandlerFunc(h.JiraWebhook)))
	mux.Handle("POST /webhooks/datadog", authed(http.HandlerFunc(h.DatadogWebhook)))
	mux.Handle("POST /webhooks/sonar", authed(http.HandlerFunc(h.SonarWebhook)))

	// Health
	mux.Handle("GET /health", base(http.HandlerFunc(h.Health)))
}
