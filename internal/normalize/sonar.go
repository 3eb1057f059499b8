package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shaiso/Anton/internal/domain"
)

// sonarGateMap — приоритет по статусу quality gate.
// Неизвестный статус → P3.
var sonarGateMap = map[string]domain.Priority{
	"error": domain.PriorityP2,
	"warn":  domain.PriorityP3,
	"ok":    domain.PriorityP4,
}

// sonarWebhook — релевантная часть SonarCloud webhook payload.
type sonarWebhook struct {
	TaskID      string `json:"taskId"`
	Status      string `json:"status"`
	QualityGate struct {
		Status string `json:"status"`
	} `json:"qualityGate"`
	Project struct {
		Key  string `json:"key"`
		Name string `json:"name"`
	} `json:"project"`
}

// SonarNormalizer нормализует SonarCloud quality gate events.
type SonarNormalizer struct{}

// Normalize реализует Normalizer.
//
// Статус анализа FAILED/CANCELLED доминирует над quality gate и
// даёт P1; иначе приоритет берётся из sonarGateMap.
// external_id = taskId (fallback: project key), title синтезируется
// из имени проекта.
func (n *SonarNormalizer) Normalize(raw []byte) (*domain.AgentTask, error) {
	var payload sonarWebhook
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var priority domain.Priority
	switch strings.ToUpper(payload.Status) {
	case "FAILED", "CANCELLED":
		priority = domain.PriorityP1
	default:
		var ok bool
		priority, ok = sonarGateMap[strings.ToLower(payload.QualityGate.Status)]
		if !ok {
			priority = domain.PriorityP3
		}
	}

	externalID := payload.TaskID
	if externalID == "" {
		externalID = payload.Project.Key
	}

	projectName := payload.Project.Name
	if projectName == "" {
		projectName = payload.Project.Key
	}

	return domain.NewAgentTask(
		domain.SourceSonar,
		externalID,
		fmt.Sprintf("SonarCloud analysis: %s", projectName),
		priority,
		raw,
	), nil
}
