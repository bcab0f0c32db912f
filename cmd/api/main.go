package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/clinic-scheduler/internal/bootstrap"
	"github.com/jwalitptl/clinic-scheduler/internal/config"
	"github.com/jwalitptl/clinic-scheduler/internal/email"
	appointmentHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/appointment"
	auditHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/audit"
	catalogHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/catalog"
	"github.com/jwalitptl/clinic-scheduler/internal/handler/health"
	justificationHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/justification"
	notificationHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/notification"
	personHandler "github.com/jwalitptl/clinic-scheduler/internal/handler/person"
	"github.com/jwalitptl/clinic-scheduler/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-scheduler/internal/model"
	"github.com/jwalitptl/clinic-scheduler/internal/router"
	"github.com/jwalitptl/clinic-scheduler/internal/service/appointment"
	"github.com/jwalitptl/clinic-scheduler/internal/service/audit"
	"github.com/jwalitptl/clinic-scheduler/internal/service/catalog"
	"github.com/jwalitptl/clinic-scheduler/internal/service/conflict"
	"github.com/jwalitptl/clinic-scheduler/internal/service/event"
	"github.com/jwalitptl/clinic-scheduler/internal/service/justification"
	"github.com/jwalitptl/clinic-scheduler/internal/service/notification"
	"github.com/jwalitptl/clinic-scheduler/internal/service/person"
	"github.com/jwalitptl/clinic-scheduler/internal/service/relation"
	"github.com/jwalitptl/clinic-scheduler/internal/service/timegrid"
	"github.com/jwalitptl/clinic-scheduler/internal/worker"
	"github.com/jwalitptl/clinic-scheduler/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-scheduler/pkg/logger"
	"github.com/jwalitptl/clinic-scheduler/pkg/messaging"
	"github.com/jwalitptl/clinic-scheduler/pkg/metrics"
	pkgworker "github.com/jwalitptl/clinic-scheduler/pkg/worker"
)

const metricsNamespace = "scheduler"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log := bootstrap.NewLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repos, err := bootstrap.NewRepositories(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal(err, "failed to initialize storage")
	}
	defer repos.Close()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(metricsNamespace, reg)

	// Services
	auditor := audit.NewAuditLogger(audit.NewService(repos.Audit), log)
	events := event.NewService(repos.Outbox)
	catalogSvc := catalog.NewService(repos.ServiceTypes, catalog.Config{
		DefaultDurationMinutes: cfg.Scheduling.DefaultDurationMinutes,
		CacheTTL:               cfg.Scheduling.CatalogCacheTTL,
	}, log)
	links := relation.NewSynchronizer(repos.Relations, log)

	dispatcher := notification.NewDispatcher(notification.Deps{
		Notifications: repos.Notifications,
		Appointments:  repos.Appointments,
		Hydrator:      links,
		People:        repos.People,
		Resolver:      notification.NewDirectoryResolver(repos.People, cfg.Notifications.Channel),
		Messenger:     newMessenger(cfg, log),
		Metrics:       m,
		Logger:        log,
	}, notification.Config{
		OutboundEnabled: cfg.Notifications.OutboundEnabled,
		SendTimeout:     cfg.Notifications.SendTimeout,
	})

	scheduler := appointment.NewService(appointment.Deps{
		Appointments:   repos.Appointments,
		Notifications:  repos.Notifications,
		Justifications: repos.Justifications,
		Relations:      links,
		Detector:       conflict.NewDetector(repos.Appointments, links, catalogSvc),
		Catalog:        catalogSvc,
		Policy:         timegrid.NewPolicy(nil),
		Dispatcher:     dispatcher,
		Events:         events,
		Auditor:        auditor,
		Metrics:        m,
		Logger:         log,
	}, appointment.Config{AllowOffGrid: cfg.Scheduling.AllowOffGrid})

	justificationSvc := justification.NewService(
		repos.Justifications, repos.Notifications, scheduler, events, auditor, log)

	// The worker binary cannot reach an in-memory store, so relay and
	// retention run in-process.
	if cfg.Database.Driver == "memory" {
		if err := startInProcessWorkers(ctx, cfg, repos, m, log); err != nil {
			log.Fatal(err, "failed to start in-process workers")
		}
	}

	// Handlers
	r := router.NewRouter(
		health.NewHandler(map[string]health.Check{"database": repos.Ping}),
		prometheus.New(metricsNamespace, reg),
		routerConfig(cfg, log),
		appointmentHandler.NewHandler(scheduler),
		justificationHandler.NewHandler(justificationSvc),
		notificationHandler.NewHandler(notification.NewService(repos.Notifications, auditor)),
		catalogHandler.NewHandler(catalogSvc),
		personHandler.NewHandler(person.NewService(repos.People, auditor)),
		auditHandler.NewHandler(audit.NewService(repos.Audit)),
	)
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info("server listening", "port", cfg.Server.Port, "store", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}

	// Let queued outbound sends finish before the process exits.
	dispatcher.Wait()
	log.Info("server exited properly")
}

func routerConfig(cfg *config.Config, log *logger.Logger) router.RouterConfig {
	rc := router.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		MetricsPath:    cfg.Server.MetricsPath,
		Logger:         log,
	}
	if cfg.RateLimit.Enabled {
		rc.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		rc.RateBurst = cfg.RateLimit.Burst
	}
	return rc
}

func newMessenger(cfg *config.Config, log *logger.Logger) notification.Messenger {
	var next notification.Messenger = email.NewLogMessenger(log)
	if cfg.Notifications.Channel == notification.ChannelEmail {
		next = email.NewSMTPMessenger(email.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Subject:  cfg.SMTP.Subject,
		})
	}

	return notification.NewGuardedMessenger(next, notification.GuardConfig{
		RatePerSecond: cfg.Notifications.RatePerSecond,
		Burst:         cfg.Notifications.Burst,
		Timeout:       cfg.Notifications.SendTimeout,
		Breaker: circuitbreaker.Settings{
			Name: "outbound-" + cfg.Notifications.Channel,
			OnStateChange: func(name, from, to string) {
				log.Warn("messenger circuit breaker state changed", "name", name, "from", from, "to", to)
			},
		},
	})
}

func startInProcessWorkers(ctx context.Context, cfg *config.Config, repos *bootstrap.Repositories, m *metrics.Metrics, log *logger.Logger) error {
	broker, err := bootstrap.NewBroker(cfg, log)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		broker.Close()
	}()

	// Tail every appointment event so the relay is observable without an
	// external consumer.
	for _, eventType := range model.AppointmentEventTypes {
		topic := cfg.Broker.TopicPrefix + eventType
		err := messaging.Subscribe(ctx, broker, topic, func(_ context.Context, payload []byte) error {
			log.Debug("event received", "topic", topic, "payload", string(payload))
			return nil
		}, log)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}

	processor := pkgworker.NewOutboxProcessor(repos.Outbox, broker, pkgworker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		MaxFailures:   cfg.Outbox.MaxFailures,
		TopicPrefix:   cfg.Broker.TopicPrefix,
	}, log, m)
	go processor.Start(ctx)

	retention := worker.NewRetentionWorker(repos.Audit, repos.Outbox, worker.RetentionConfig{
		AuditRetentionDays: cfg.Audit.RetentionDays,
		OutboxRetention:    cfg.Outbox.Retention,
		CleanupInterval:    cfg.Audit.CleanupInterval,
	}, log)
	go retention.Start(ctx)

	return nil
}
