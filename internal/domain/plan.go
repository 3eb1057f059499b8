package domain

import "fmt"

// TemplateID — профиль исполнения агента.
type TemplateID string

const (
	TemplateJavaBackend     TemplateID = "java-backend"
	TemplatePythonBackend   TemplateID = "python-backend"
	TemplateReactFrontend   TemplateID = "react-frontend"
	TemplateGeneralResearch TemplateID = "general-research"
)

// IsValid проверяет, что template_id — известный профиль.
func (t TemplateID) IsValid() bool {
	switch t {
	case TemplateJavaBackend, TemplatePythonBackend, TemplateReactFrontend, TemplateGeneralResearch:
		return true
	default:
		return false
	}
}

// Complexity — оценка сложности задачи.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// IsValid проверяет, что complexity — один из трёх уровней.
func (c Complexity) IsValid() bool {
	switch c {
	case ComplexityLow, ComplexityMedium, ComplexityHigh:
		return true
	default:
		return false
	}
}

// RouterPlan — решение классификатора о том, как исполнять задачу.
//
// План валиден только в паре с той AgentTask, из которой он получен;
// pipeline никогда не кэширует и не переиспользует план между задачами.
type RouterPlan struct {
	// TemplateID — выбранный профиль исполнения.
	TemplateID TemplateID `json:"template_id"`

	// Complexity — оценка сложности.
	Complexity Complexity `json:"complexity"`

	// RequiredSkills — неупорядоченный список тегов-навыков.
	RequiredSkills []string `json:"required_skills"`

	// ContextSummary — очищенное описание задачи для агента.
	ContextSummary string `json:"context_summary"`
}

// Validate проверяет план на соответствие схеме:
// закрытые enum'ы и обязательный context_summary.
func (p *RouterPlan) Validate() error {
	if !p.TemplateID.IsValid() {
		return fmt.Errorf("invalid template_id: %q", p.TemplateID)
	}
	if !p.Complexity.IsValid() {
		return fmt.Errorf("invalid complexity: %q", p.Complexity)
	}
	if p.ContextSummary == "" {
		return fmt.Errorf("context_summary is required")
	}
	return nil
}
