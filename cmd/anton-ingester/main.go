// Anton Ingester — HTTP front door pipeline'а.
//
// Принимает вендорские webhook'и (Jira, Datadog, SonarCloud),
// нормализует их в AgentTask и публикует в agent_events.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Anton/internal/api"
	"github.com/shaiso/Anton/internal/config"
	"github.com/shaiso/Anton/internal/mq"
	"github.com/shaiso/Anton/internal/normalize"
	"github.com/shaiso/Anton/internal/repo"
	"github.com/shaiso/Anton/internal/telemetry"
)

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting anton-ingester")

	cfg := config.FromEnv()

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// RabbitMQ: без брокера ingester бесполезен — ошибка фатальна
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

	// Архив best-effort: без БД работаем дальше
	var archive api.Archiver
	if pool, err := repo.NewPool(ctx); err != nil {
		logger.Warn("database not available, archive disabled", "error", err)
	} else {
		defer pool.Close()
		archive = repo.NewTaskRepo(pool)
		logger.Info("database connected")
	}

	handler := api.NewHandler(api.Config{
		Registry:  normalize.NewRegistry(),
		Publisher: publisher,
		Health:    conn,
		Archive:   archive,
		Secret:    cfg.WebhookSecret,
		Logger:    logger,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	port := ":8080"
	if v := os.Getenv("INGESTER_PORT"); v != "" {
		port = ":" + v
	}

	server := &http.Server{
		Addr:              port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("ingester listening", "addr", port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("anton-ingester stopped")
}
