package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// agentSelector — селектор объектов, созданных диспетчером.
const agentSelector = "app=agent-runner"

// Janitor удаляет завершённые agent Job'ы и их ConfigMap'ы,
// пережившие заданный TTL. Запускается по расписанию из
// orchestrator-процесса.
type Janitor struct {
	client    kubernetes.Interface
	namespace string
	ttl       time.Duration
	logger    *slog.Logger
}

// NewJanitor создаёт Janitor.
func NewJanitor(client kubernetes.Interface, namespace string, ttl time.Duration, logger *slog.Logger) *Janitor {
	return &Janitor{
		client:    client,
		namespace: namespace,
		ttl:       ttl,
		logger:    logger,
	}
}

// Sweep выполняет один проход уборки.
func (j *Janitor) Sweep(ctx context.Context) error {
	jobs, err := j.client.BatchV1().Jobs(j.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: agentSelector,
	})
	if err != nil {
		return fmt.Errorf("list agent jobs: %w", err)
	}

	cutoff := time.Now().Add(-j.ttl)
	removed := 0

	for i := range jobs.Items {
		job := &jobs.Items[i]

		if !finishedBefore(job, cutoff) {
			continue
		}

		propagation := metav1.DeletePropagationBackground
		err := j.client.BatchV1().Jobs(j.namespace).Delete(ctx, job.Name, metav1.DeleteOptions{
			PropagationPolicy: &propagation,
		})
		if err != nil && !apierrors.IsNotFound(err) {
			j.logger.Warn("failed to delete job", "job", job.Name, "error", err)
			continue
		}

		// ConfigMap делит с Job'ом суффикс task_id
		if taskID := job.Labels["task-id"]; taskID != "" {
			err := j.client.CoreV1().ConfigMaps(j.namespace).Delete(ctx, ConfigMapName(taskID), metav1.DeleteOptions{})
			if err != nil && !apierrors.IsNotFound(err) {
				j.logger.Warn("failed to delete configmap", "task_id", taskID, "error", err)
			}
		}

		removed++
	}

	if removed > 0 {
		j.logger.Info("janitor sweep finished", "removed", removed)
	}

	return nil
}

// finishedBefore проверяет, что Job завершён и закончился до cutoff.
func finishedBefore(job *batchv1.Job, cutoff time.Time) bool {
	if job.Status.Succeeded == 0 && job.Status.Failed == 0 {
		return false
	}

	finished := job.Status.CompletionTime
	if finished == nil {
		// FAILED Job'ы могут не иметь completionTime
		if job.Status.StartTime == nil {
			return false
		}
		finished = job.Status.StartTime
	}

	return finished.Time.Before(cutoff)
}
