package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Anton/internal/domain"
)

// ArchivedTask — строка архива.
type ArchivedTask struct {
	TaskID     uuid.UUID         `json:"task_id"`
	Source     domain.Source     `json:"source"`
	ExternalID string            `json:"external_id"`
	Title      string            `json:"title"`
	Priority   domain.Priority   `json:"priority"`
	Status     domain.TaskStatus `json:"status"`
	Attempts   int               `json:"attempts"`
	JobName    string            `json:"job_name,omitempty"`
	LastError  string            `json:"last_error,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// TaskRepo — репозиторий архива задач.
type TaskRepo struct {
	pool *pgxpool.Pool
}

// NewTaskRepo создаёт TaskRepo.
func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

// Insert регистрирует принятую задачу (статус RECEIVED).
// Повторная вставка того же task_id — no-op.
func (r *TaskRepo) Insert(ctx context.Context, task *domain.AgentTask) error {
	query := `
		INSERT INTO agent_tasks (task_id, source, external_id, title, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (task_id) DO NOTHING
	`
	_, err := r.pool.Exec(ctx, query,
		task.TaskID,
		task.Source,
		task.ExternalID,
		task.Title,
		task.Priority,
		domain.TaskStatusReceived,
		task.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// MarkDispatched фиксирует успешный dispatch.
func (r *TaskRepo) MarkDispatched(ctx context.Context, taskID uuid.UUID, jobName string) error {
	query := `
		UPDATE agent_tasks
		SET status = $2, job_name = $3, updated_at = now()
		WHERE task_id = $1
	`
	_, err := r.pool.Exec(ctx, query, taskID, domain.TaskStatusDispatched, jobName)
	if err != nil {
		return fmt.Errorf("mark dispatched: %w", err)
	}
	return nil
}

// MarkRetried фиксирует неудачную попытку и её причину.
func (r *TaskRepo) MarkRetried(ctx context.Context, taskID uuid.UUID, attempts int, lastError string) error {
	query := `
		UPDATE agent_tasks
		SET attempts = $2, last_error = $3, updated_at = now()
		WHERE task_id = $1
	`
	_, err := r.pool.Exec(ctx, query, taskID, attempts, lastError)
	if err != nil {
		return fmt.Errorf("mark retried: %w", err)
	}
	return nil
}

// MarkDeadLettered фиксирует уход задачи в DLQ.
func (r *TaskRepo) MarkDeadLettered(ctx context.Context, taskID uuid.UUID, attempts int, lastError string) error {
	query := `
		UPDATE agent_tasks
		SET status = $2, attempts = $3, last_error = $4, updated_at = now()
		WHERE task_id = $1
	`
	_, err := r.pool.Exec(ctx, query, taskID, domain.TaskStatusDeadLettered, attempts, lastError)
	if err != nil {
		return fmt.Errorf("mark dead lettered: %w", err)
	}
	return nil
}

// GetByID возвращает задачу из архива.
func (r *TaskRepo) GetByID(ctx context.Context, taskID uuid.UUID) (*ArchivedTask, error) {
	query := `
		SELECT task_id, source, external_id, title, priority, status, attempts, job_name, last_error, created_at, updated_at
		FROM agent_tasks
		WHERE task_id = $1
	`
	var t ArchivedTask
	err := r.pool.QueryRow(ctx, query, taskID).Scan(
		&t.TaskID, &t.Source, &t.ExternalID, &t.Title, &t.Priority,
		&t.Status, &t.Attempts, &t.JobName, &t.LastError, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &t, nil
}

// Filter — условия выборки списка.
type Filter struct {
	Source domain.Source
	Status domain.TaskStatus
	Limit  int
	Offset int
}

// List возвращает задачи из архива, новые первыми.
func (r *TaskRepo) List(ctx context.Context, f Filter) ([]ArchivedTask, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT task_id, source, external_id, title, priority, status, attempts, job_name, last_error, created_at, updated_at
		FROM agent_tasks
		WHERE ($1 = '' OR source = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.pool.Query(ctx, query, string(f.Source), string(f.Status), limit, f.Offset)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []ArchivedTask
	for rows.Next() {
		var t ArchivedTask
		if err := rows.Scan(
			&t.TaskID, &t.Source, &t.ExternalID, &t.Title, &t.Priority,
			&t.Status, &t.Attempts, &t.JobName, &t.LastError, &t.CreatedAt, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}
