// Package router — обёртка над внешним LLM, превращающая AgentTask
// в RouterPlan.
//
// Вызов синхронный с точки зрения оркестратора; внутри retry нет —
// повторные попытки это ответственность state machine.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/shaiso/Anton/internal/domain"
	"github.com/shaiso/Anton/internal/telemetry"
)

// ErrClassification — внешний вызов не удался или ответ не
// соответствует схеме RouterPlan. Подлежит retry через state machine.
var ErrClassification = errors.New("classification failed")

// defaultTimeout — таймаут одного вызова LLM.
const defaultTimeout = 60 * time.Second

// systemPrompt фиксирует требуемый формат ответа.
const systemPrompt = `You are a Technical Lead. Analyze this task and decide which agent template to use.

You MUST respond with a single JSON object (no markdown fences) containing exactly these fields:
- "template_id": one of "java-backend", "python-backend", "react-frontend", "general-research"
- "complexity": one of "low", "medium", "high"
- "required_skills": a list of short skill strings (e.g. ["django", "sql", "aws"])
- "context_summary": a concise, sanitized summary of the task for the executing agent`

// Router классифицирует задачи через LLM.
type Router struct {
	model   llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// Config — конфигурация Router.
type Config struct {
	// APIKey и Model — параметры Anthropic API.
	// Игнорируются, если задан LLM.
	APIKey string
	Model  string

	// LLM — готовая модель (для тестов).
	LLM llms.Model

	// Timeout одного вызова (default: 60s).
	Timeout time.Duration

	Logger *slog.Logger
}

// New создаёт Router.
func New(cfg Config) (*Router, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	model := cfg.LLM
	if model == nil {
		var err error
		model, err = anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
	}

	return &Router{
		model:   model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Route запрашивает у LLM план исполнения для задачи.
func (r *Router) Route(ctx context.Context, task *domain.AgentTask) (*domain.RouterPlan, error) {
	logger := telemetry.WithTaskID(r.logger, task.TaskID.String())
	logger.Info("routing task via LLM")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, renderTask(task)),
	}

	resp, err := r.model.GenerateContent(ctx, messages, llms.WithMaxTokens(1024))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrClassification)
	}

	plan, err := parsePlan(resp.Choices[0].Content)
	if err != nil {
		return nil, err
	}

	logger.Info("task routed",
		"template_id", plan.TemplateID,
		"complexity", plan.Complexity,
	)

	return plan, nil
}

// renderTask — текстовое представление задачи для prompt'а.
func renderTask(task *domain.AgentTask) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Source: %s\n", task.Source)
	fmt.Fprintf(&b, "Priority: %s\n", task.Priority)
	fmt.Fprintf(&b, "Title: %s\n", task.Title)
	fmt.Fprintf(&b, "External ID: %s\n", task.ExternalID)
	fmt.Fprintf(&b, "Payload:\n%s", string(task.RawPayload))
	return b.String()
}

// parsePlan валидирует сырой ответ LLM против схемы RouterPlan.
func parsePlan(raw string) (*domain.RouterPlan, error) {
	raw = strings.TrimSpace(raw)

	// Модели иногда заворачивают JSON в fences вопреки инструкции
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	if raw == "" {
		return nil, fmt.Errorf("%w: empty response", ErrClassification)
	}

	var plan domain.RouterPlan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", ErrClassification, err)
	}

	if err := plan.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, err)
	}

	return &plan, nil
}
