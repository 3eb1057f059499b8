package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/Anton/internal/domain"
	"github.com/shaiso/Anton/internal/normalize"
)

// Publisher — публикация сериализованной задачи в брокер.
type Publisher interface {
	PublishTaskCreated(ctx context.Context, body []byte) error
}

// HealthChecker — состояние соединения с брокером для /health.
type HealthChecker interface {
	IsConnected() bool
}

// Archiver — best-effort регистрация принятой задачи.
type Archiver interface {
	Insert(ctx context.Context, task *domain.AgentTask) error
}

// Handler — обработчик ingress API с зависимостями.
type Handler struct {
	registry  *normalize.Registry
	publisher Publisher
	health    HealthChecker
	archive   Archiver // может быть nil
	secret    string
	logger    *slog.Logger
}

// Config — конфигурация Handler.
type Config struct {
	Registry  *normalize.Registry
	Publisher Publisher
	Health    HealthChecker

	// Archive — опционально; nil отключает учёт.
	Archive Archiver

	// Secret — shared secret webhook'ов.
	Secret string

	Logger *slog.Logger
}

// NewHandler создаёт Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		registry:  cfg.Registry,
		publisher: cfg.Publisher,
		health:    cfg.Health,
		archive:   cfg.Archive,
		secret:    cfg.Secret,
		logger:    cfg.Logger,
	}
}
