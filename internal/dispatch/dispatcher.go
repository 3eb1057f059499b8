package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/shaiso/Anton/internal/domain"
	"github.com/shaiso/Anton/internal/telemetry"
)

// Dispatcher создаёт ConfigMap с контекстом задачи и Job в Kubernetes.
//
// Dispatch идемпотентен: имена объектов детерминированно выводятся из
// task_id, а AlreadyExists от API-сервера трактуется как успех. Падение
// между созданием Job и ack'ом сообщения при redelivery сходится к тому
// же Job'у вместо дубликата.
type Dispatcher struct {
	client    kubernetes.Interface
	namespace string
	image     string
	logger    *slog.Logger
}

// Config — конфигурация Dispatcher.
type Config struct {
	// Client — клиент Kubernetes API.
	Client kubernetes.Interface

	// Namespace — namespace для ConfigMap'ов и Job'ов.
	Namespace string

	// Image — образ агента для Job'а.
	Image string

	Logger *slog.Logger
}

// New создаёт Dispatcher.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		client:    cfg.Client,
		namespace: cfg.Namespace,
		image:     cfg.Image,
		logger:    logger,
	}
}

// NewClient создаёт clientset: in-cluster конфигурация, с fallback
// на kubeconfig (KUBECONFIG или ~/.kube/config) для локального запуска.
func NewClient() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := os.Getenv("KUBECONFIG")
		if kubeconfig == "" {
			kubeconfig = filepath.Join(homedir.HomeDir(), ".kube", "config")
		}

		cfg, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("load kube config: %w", err)
		}
	}

	return kubernetes.NewForConfig(cfg)
}

// ConfigMapName возвращает имя контекстного ConfigMap'а для задачи.
func ConfigMapName(taskID string) string {
	return "agent-ctx-" + taskID
}

// JobName возвращает имя Job'а для задачи.
func JobName(taskID string) string {
	return "agent-job-" + taskID
}

// Dispatch создаёт контекстный ConfigMap и Job для пары (task, plan).
// Возвращает имя созданного Job'а.
func (d *Dispatcher) Dispatch(ctx context.Context, task *domain.AgentTask, plan *domain.RouterPlan) (string, error) {
	taskID := task.TaskID.String()
	logger := telemetry.WithTaskID(d.logger, taskID)

	configMapName := ConfigMapName(taskID)
	jobName := JobName(taskID)

	// 1. ConfigMap с контекстом {task, plan}
	contextDoc, err := json.MarshalIndent(map[string]any{
		"task": task,
		"plan": plan,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: marshal context: %v", ErrDispatch, err)
	}

	configMap := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      configMapName,
			Namespace: d.namespace,
			Labels: map[string]string{
				"app":     "agent-runner",
				"task-id": taskID,
			},
		},
		Data: map[string]string{
			"task.json": string(contextDoc),
		},
	}

	_, err = d.client.CoreV1().ConfigMaps(d.namespace).Create(ctx, configMap, metav1.CreateOptions{})
	switch {
	case apierrors.IsAlreadyExists(err):
		// Redelivery после падения между dispatch и ack
		logger.Info("configmap already exists, reusing", "configmap", configMapName)
	case err != nil:
		return "", fmt.Errorf("%w: create configmap: %v", ErrDispatch, err)
	default:
		logger.Info("configmap created", "configmap", configMapName)
	}

	// 2. Job из шаблона
	job, err := renderJob(jobParams{
		JobName:       jobName,
		Namespace:     d.namespace,
		TaskID:        taskID,
		TemplateID:    string(plan.TemplateID),
		Complexity:    string(plan.Complexity),
		ConfigMapName: configMapName,
		Image:         d.image,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDispatch, err)
	}

	_, err = d.client.BatchV1().Jobs(d.namespace).Create(ctx, job, metav1.CreateOptions{})
	switch {
	case apierrors.IsAlreadyExists(err):
		logger.Info("job already exists, treating as dispatched", "job", jobName)
	case err != nil:
		return "", fmt.Errorf("%w: create job: %v", ErrDispatch, err)
	default:
		logger.Info("job submitted", "job", jobName, "namespace", d.namespace)
	}

	return jobName, nil
}
