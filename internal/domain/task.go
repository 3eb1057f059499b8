package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Source — система-источник события.
//
// Закрытое множество: каждому источнику соответствует свой
// нормализатор в internal/normalize.
type Source string

const (
	// SourceJira — issue tracker (Jira webhooks).
	SourceJira Source = "jira"

	// SourceDatadog — мониторинг (Datadog alert webhooks).
	SourceDatadog Source = "datadog"

	// SourceSonar — статический анализ (SonarCloud webhooks).
	SourceSonar Source = "sonarcloud"
)

// IsValid проверяет, что источник входит в известное множество.
func (s Source) IsValid() bool {
	switch s {
	case SourceJira, SourceDatadog, SourceSonar:
		return true
	default:
		return false
	}
}

// Priority — приоритет задачи, от P1 (критический) до P4 (низкий).
//
// Выводится детерминированно из сигналов источника при нормализации
// и дальше не меняется.
type Priority string

const (
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
	PriorityP4 Priority = "P4"
)

// IsValid проверяет, что приоритет — один из четырёх уровней.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3, PriorityP4:
		return true
	default:
		return false
	}
}

// AgentTask — каноническое представление входящего события.
//
// Это wire-контракт между ingester и orchestrator: тело сообщения
// в RabbitMQ — JSON-кодировка AgentTask.
//
// После создания нормализатором AgentTask неизменяем — все стадии
// pipeline читают его как значение и никогда не мутируют.
type AgentTask struct {
	// TaskID — уникальный идентификатор, генерируется один раз
	// при нормализации.
	TaskID uuid.UUID `json:"task_id"`

	// Source — система-источник.
	Source Source `json:"source"`

	// ExternalID — идентификатор события/сущности в источнике
	// (для трассировки; pipeline сам дедупликацию не делает).
	ExternalID string `json:"external_id"`

	// Title — однострочное человекочитаемое описание.
	Title string `json:"title"`

	// Priority — выведенный приоритет.
	Priority Priority `json:"priority"`

	// RawPayload — исходный payload вендора, сохранённый дословно
	// для аудита и контекста downstream-агента.
	RawPayload json.RawMessage `json:"raw_payload"`

	// CreatedAt — время нормализации.
	CreatedAt time.Time `json:"created_at"`
}

// NewAgentTask создаёт AgentTask с новым TaskID и текущим временем.
func NewAgentTask(source Source, externalID, title string, priority Priority, raw json.RawMessage) *AgentTask {
	return &AgentTask{
		TaskID:     uuid.New(),
		Source:     source,
		ExternalID: externalID,
		Title:      title,
		Priority:   priority,
		RawPayload: raw,
		CreatedAt:  time.Now().UTC(),
	}
}
