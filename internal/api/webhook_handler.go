package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/shaiso/Anton/internal/domain"
	"github.com/shaiso/Anton/internal/telemetry"
)

// maxPayloadBytes — лимит тела webhook'а.
const maxPayloadBytes = 1 << 20 // 1 MiB

// JiraWebhook принимает Jira issue events.
// POST /webhooks/jira
func (h *Handler) JiraWebhook(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, domain.SourceJira)
}

// DatadogWebhook принимает Datadog alerts.
// POST /webhooks/datadog
func (h *Handler) DatadogWebhook(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, domain.SourceDatadog)
}

// SonarWebhook принимает SonarCloud quality gate events.
// POST /webhooks/sonar
func (h *Handler) SonarWebhook(w http.ResponseWriter, r *http.Request) {
	h.ingest(w, r, domain.SourceSonar)
}

// ingest — общий путь: нормализовать, опубликовать, ответить 202.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request, source domain.Source) {
	logger := telemetry.WithSource(h.logger, string(source))

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		BadRequest(w, "failed to read request body")
		return
	}

	task, err := h.registry.Normalize(source, raw)
	if err != nil {
		logger.Warn("failed to normalize payload", "error", err)
		telemetry.NormalizeFailures.WithLabelValues(string(source)).Inc()
		BadRequest(w, err.Error())
		return
	}

	body, err := json.Marshal(task)
	if err != nil {
		InternalError(w, logger, err)
		return
	}

	if err := h.publisher.PublishTaskCreated(r.Context(), body); err != nil {
		logger.Error("failed to publish message", "error", err)
		telemetry.PublishFailures.Inc()
		Unavailable(w, "failed to publish message")
		return
	}

	// Архив best-effort: записываем после успешной публикации,
	// ошибка не мешает ответу 202.
	if h.archive != nil {
		if err := h.archive.Insert(r.Context(), task); err != nil {
			logger.Warn("failed to archive task", "task_id", task.TaskID, "error", err)
		}
	}

	telemetry.TasksIngested.WithLabelValues(string(source)).Inc()
	logger.Info("task ingested", "task_id", task.TaskID, "priority", task.Priority)

	Accepted(w, task.TaskID.String())
}

// HealthResponse — ответ /health.
type HealthResponse struct {
	Status   string `json:"status"`
	RabbitMQ string `json:"rabbitmq"`
}

// Health сообщает состояние процесса и соединения с брокером.
// GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	broker := "ok"
	if h.health == nil || !h.health.IsConnected() {
		broker = "degraded"
	}

	JSON(w, http.StatusOK, HealthResponse{Status: "ok", RabbitMQ: broker})
}
