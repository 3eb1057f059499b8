// Package telemetry — structured logging (log/slog) и Prometheus
// метрики pipeline'а.
package telemetry
