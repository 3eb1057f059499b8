package domain

import (
	"encoding/json"
	"testing"
)

func TestNewAgentTask(t *testing.T) {
	raw := json.RawMessage(`{"issue":{}}`)
	task := NewAgentTask(SourceJira, "PROJ-1", "Fix login", PriorityP2, raw)

	if task.TaskID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("task_id should be generated")
	}
	if task.CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
	if task.CreatedAt.Location() != task.CreatedAt.UTC().Location() {
		t.Error("created_at should be UTC")
	}

	// Identity is unique per call
	other := NewAgentTask(SourceJira, "PROJ-1", "Fix login", PriorityP2, raw)
	if task.TaskID == other.TaskID {
		t.Error("each task should get a fresh task_id")
	}
}

func TestAgentTask_JSONRoundTrip(t *testing.T) {
	task := NewAgentTask(SourceDatadog, "123", "CPU high", PriorityP1, json.RawMessage(`{"id":"123"}`))

	body, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded AgentTask
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if decoded.TaskID != task.TaskID {
		t.Error("task_id should survive the round trip")
	}
	if decoded.Source != SourceDatadog || decoded.Priority != PriorityP1 {
		t.Error("fields should survive the round trip")
	}
	if string(decoded.RawPayload) != `{"id":"123"}` {
		t.Errorf("raw_payload: got %s", decoded.RawPayload)
	}
}

func TestPriority_IsValid(t *testing.T) {
	for _, p := range []Priority{PriorityP1, PriorityP2, PriorityP3, PriorityP4} {
		if !p.IsValid() {
			t.Errorf("%s should be valid", p)
		}
	}
	for _, p := range []Priority{"P5", "p1", "", "critical"} {
		if p.IsValid() {
			t.Errorf("%q should be invalid", p)
		}
	}
}

func TestRouterPlan_Validate(t *testing.T) {
	valid := RouterPlan{
		TemplateID:     TemplatePythonBackend,
		Complexity:     ComplexityLow,
		RequiredSkills: []string{"django"},
		ContextSummary: "fix the view",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := []struct {
		name string
		plan RouterPlan
	}{
		{"unknown template", RouterPlan{TemplateID: "golang-backend", Complexity: ComplexityLow, ContextSummary: "s"}},
		{"empty template", RouterPlan{Complexity: ComplexityLow, ContextSummary: "s"}},
		{"unknown complexity", RouterPlan{TemplateID: TemplateJavaBackend, Complexity: "extreme", ContextSummary: "s"}},
		{"missing summary", RouterPlan{TemplateID: TemplateJavaBackend, Complexity: ComplexityLow}},
	}
	for _, tc := range cases {
		if err := tc.plan.Validate(); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}

	// Empty skills list is allowed
	valid.RequiredSkills = nil
	if err := valid.Validate(); err != nil {
		t.Errorf("nil skills should be allowed: %v", err)
	}
}

func TestTaskStatus_IsTerminal(t *testing.T) {
	if TaskStatusReceived.IsTerminal() {
		t.Error("RECEIVED is not terminal")
	}
	if !TaskStatusDispatched.IsTerminal() {
		t.Error("DISPATCHED is terminal")
	}
	if !TaskStatusDeadLettered.IsTerminal() {
		t.Error("DEAD_LETTERED is terminal")
	}
}
