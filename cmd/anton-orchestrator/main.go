// Anton Orchestrator — consumer-процесс pipeline'а.
//
// Читает задачи из orchestrator_queue (prefetch=1), классифицирует
// через LLM, создаёт agent Job'ы в Kubernetes и ведёт retry/DLQ
// state machine. Масштабируется горизонтально: несколько экземпляров
// конкурируют за одну очередь.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Anton/internal/config"
	"github.com/shaiso/Anton/internal/dispatch"
	"github.com/shaiso/Anton/internal/mq"
	"github.com/shaiso/Anton/internal/orchestrator"
	"github.com/shaiso/Anton/internal/repo"
	"github.com/shaiso/Anton/internal/router"
	"github.com/shaiso/Anton/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting anton-orchestrator")

	cfg := config.FromEnv()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// RabbitMQ: ошибка начального подключения фатальна
	conn, err := mq.Dial(cfg.RabbitURL, logger)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if err := mq.DeclareTopology(conn); err != nil {
		logger.Error("failed to declare topology", "error", err)
		os.Exit(1)
	}

	publisher := mq.NewPublisher(conn, logger)

	// Классификатор
	taskRouter, err := router.New(router.Config{
		APIKey:  cfg.AnthropicAPIKey,
		Model:   cfg.AnthropicModel,
		Timeout: cfg.LLMTimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Error("failed to create task router", "error", err)
		os.Exit(1)
	}

	// Kubernetes
	kubeClient, err := dispatch.NewClient()
	if err != nil {
		logger.Error("failed to create kubernetes client", "error", err)
		os.Exit(1)
	}

	dispatcher := dispatch.New(dispatch.Config{
		Client:    kubeClient,
		Namespace: cfg.Namespace,
		Image:     cfg.AgentImage,
		Logger:    logger,
	})

	// Архив best-effort
	var archive orchestrator.Archive
	if pool, err := repo.NewPool(ctx); err != nil {
		logger.Warn("database not available, archive disabled", "error", err)
	} else {
		defer pool.Close()
		archive = repo.NewTaskRepo(pool)
		logger.Info("database connected")
	}

	orch := orchestrator.New(orchestrator.Config{
		Broker:     publisher,
		Classifier: taskRouter,
		Dispatcher: dispatcher,
		Archive:    archive,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})

	// Janitor: уборка завершённых Job'ов по расписанию
	janitor := dispatch.NewJanitor(kubeClient, cfg.Namespace, cfg.JobTTL, logger)
	cronRunner := cron.New()
	cronRunner.AddFunc("@hourly", func() {
		sweepCtx, sweepCancel := context.WithTimeout(ctx, 5*time.Minute)
		defer sweepCancel()
		if err := janitor.Sweep(sweepCtx); err != nil {
			logger.Warn("janitor sweep failed", "error", err)
		}
	})
	cronRunner.Start()
	defer cronRunner.Stop()

	// HTTP: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("ORCHESTRATOR_PORT"); v != "" {
		port = ":" + v
	}
	httpServer := &http.Server{
		Addr:              port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
		}
	}()

	// Shutdown: сначала переводим state machine в режим завершения
	// (in-flight сообщение будет возвращено в очередь), потом
	// останавливаем consumer.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		orch.Shutdown()
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	consumer := mq.NewConsumer(conn, logger, mq.QueueOrchestrator, func(ctx context.Context, d *mq.Delivery) error {
		_, err := orch.HandleDelivery(ctx, d)
		if errors.Is(err, orchestrator.ErrShuttingDown) {
			return nil
		}
		return err
	})

	logger.Info("orchestrator running — waiting for tasks")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}

	logger.Info("anton-orchestrator stopped")
}
