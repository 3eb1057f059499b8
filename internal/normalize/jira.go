package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaiso/Anton/internal/domain"
)

// jiraPriorityMap — соответствие имени приоритета Jira уровню P1-P4.
// Сравнение без учёта регистра; неизвестное имя → P3.
var jiraPriorityMap = map[string]domain.Priority{
	"highest":  domain.PriorityP1,
	"critical": domain.PriorityP1,
	"blocker":  domain.PriorityP1,
	"high":     domain.PriorityP2,
	"major":    domain.PriorityP2,
	"medium":   domain.PriorityP3,
	"normal":   domain.PriorityP3,
	"low":      domain.PriorityP4,
	"lowest":   domain.PriorityP4,
	"minor":    domain.PriorityP4,
	"trivial":  domain.PriorityP4,
}

// jiraWebhook — релевантная часть Jira webhook payload.
// Неизвестные поля игнорируются, отсутствующие получают zero values.
type jiraWebhook struct {
	WebhookEvent string `json:"webhookEvent"`
	Issue        struct {
		ID     string `json:"id"`
		Key    string `json:"key"`
		Fields struct {
			Summary  string `json:"summary"`
			Priority struct {
				Name string `json:"name"`
			} `json:"priority"`
		} `json:"fields"`
	} `json:"issue"`
}

// JiraNormalizer нормализует Jira issue events.
type JiraNormalizer struct{}

// Normalize реализует Normalizer.
//
// external_id = issue key (fallback: внутренний id),
// title = summary, priority — по jiraPriorityMap.
func (n *JiraNormalizer) Normalize(raw []byte) (*domain.AgentTask, error) {
	var payload jiraWebhook
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	externalID := payload.Issue.Key
	if externalID == "" {
		externalID = payload.Issue.ID
	}

	priority, ok := jiraPriorityMap[strings.ToLower(payload.Issue.Fields.Priority.Name)]
	if !ok {
		priority = domain.PriorityP3
	}

	return domain.NewAgentTask(
		domain.SourceJira,
		externalID,
		payload.Issue.Fields.Summary,
		priority,
		raw,
	), nil
}
