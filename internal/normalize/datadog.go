package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaiso/Anton/internal/domain"
)

// ddPriorityMap — явный приоритет алерта (p1..p4).
var ddPriorityMap = map[string]domain.Priority{
	"p1": domain.PriorityP1,
	"p2": domain.PriorityP2,
	"p3": domain.PriorityP3,
	"p4": domain.PriorityP4,
}

// ddStatusMap — приоритет по статусу алерта, если явный не задан.
var ddStatusMap = map[string]domain.Priority{
	"triggered": domain.PriorityP1,
	"warn":      domain.PriorityP2,
	"no data":   domain.PriorityP3,
	"recovered": domain.PriorityP4,
}

// datadogWebhook — релевантная часть Datadog alert payload.
type datadogWebhook struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	AlertPriority string `json:"alert_priority"`
	AlertStatus   string `json:"alert_status"`
}

// DatadogNormalizer нормализует Datadog alerts.
type DatadogNormalizer struct{}

// Normalize реализует Normalizer.
//
// Приоритет: сначала alert_priority (p1..p4, без учёта регистра),
// затем alert_status, иначе P3. external_id/title копируются дословно,
// отсутствующие поля — пустые строки.
func (n *DatadogNormalizer) Normalize(raw []byte) (*domain.AgentTask, error) {
	var payload datadogWebhook
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	priority := domain.PriorityP3
	if payload.AlertPriority != "" {
		if p, ok := ddPriorityMap[strings.ToLower(payload.AlertPriority)]; ok {
			priority = p
		}
	} else if payload.AlertStatus != "" {
		if p, ok := ddStatusMap[strings.ToLower(payload.AlertStatus)]; ok {
			priority = p
		}
	}

	return domain.NewAgentTask(
		domain.SourceDatadog,
		payload.ID,
		payload.Title,
		priority,
		raw,
	), nil
}
