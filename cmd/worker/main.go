package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/clinic-scheduler/internal/bootstrap"
	"github.com/jwalitptl/clinic-scheduler/internal/config"
	"github.com/jwalitptl/clinic-scheduler/internal/worker"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
	pkgworker "github.com/jwalitptl/clinic-scheduler/pkg/worker"
)

const healthPort = 8081

func setupHealthCheck(reg *prometheus.Registry, ready func(context.Context) error, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := ready(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", healthPort), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "health check server failed")
		}
	}()
	return srv
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := bootstrap.NewLogger(cfg.Log).WithFields(map[string]interface{}{"worker_id": workerID()})

	if cfg.Database.Driver == "memory" {
		log.Fatal(errors.New("database.driver is memory"),
			"the worker needs a shared store; the api relays events itself in memory mode")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repos, err := bootstrap.NewRepositories(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer repos.Close()

	broker, err := bootstrap.NewBroker(cfg, log)
	if err != nil {
		log.Fatal(err, "failed to create broker")
	}
	defer broker.Close()

	reg := prometheus.NewRegistry()
	m := metrics.New("scheduler_worker", reg)

	processor := pkgworker.NewOutboxProcessor(
		repos.Outbox,
		broker,
		pkgworker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
			MaxFailures:   cfg.Outbox.MaxFailures,
			TopicPrefix:   cfg.Broker.TopicPrefix,
		},
		log,
		m,
	)
	retention := worker.NewRetentionWorker(repos.Audit, repos.Outbox, worker.RetentionConfig{
		AuditRetentionDays: cfg.Audit.RetentionDays,
		OutboxRetention:    cfg.Outbox.Retention,
		CleanupInterval:    cfg.Audit.CleanupInterval,
	}, log)

	health := setupHealthCheck(reg, repos.Ping, log)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		retention.Start(ctx)
	}()

	log.Info("worker started", "broker", cfg.Broker.Type)
	<-ctx.Done()
	log.Info("shutting down...")
	wg.Wait()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := health.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "health server forced to shutdown")
	}
}

func workerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%d", hostname, os.Getpid())
}
