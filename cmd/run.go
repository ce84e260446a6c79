package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"finengine/api"
	"finengine/config"
	"finengine/database"
	"finengine/events"
	"finengine/infrastructure"
	"finengine/infrastructure/observability"
	"finengine/prize"
	"finengine/repository"
	"finengine/service"
	"finengine/statemachine"

	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies the configured level and switches to JSON output
// in production
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)
	log.WithField("environment", cfg.Environment).Info("Starting financial workflow engine...")

	// Schema first so the services never see an old layout
	databaseURL := cfg.GetDatabaseURL()
	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	// Metrics
	metricsProvider := observability.NewMetricsProvider(cfg)
	if err := metricsProvider.Initialize(ctx); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
		metricsProvider = nil
	}

	eventBus := events.NewBus()

	// Domain events leave the process only after commit
	var natsClient *infrastructure.NATSClient
	if cfg.NATSEnabled {
		natsClient = infrastructure.NewNATSClient(cfg.NATSServers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}

		publisher := infrastructure.NewNATSEventPublisher(natsClient, infrastructure.NewEventSubjectMapper(), metricsProvider)
		if err := publisher.EnsureDomainEventStream(natsClient); err != nil {
			natsClient.Close()
			return fmt.Errorf("failed to ensure event stream: %w", err)
		}
		eventBus.SubscribeAll(publisher.Handle)
		log.WithField("servers", cfg.NATSServers).Info("Forwarding domain events to NATS")
	}

	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	var source prize.Source = prize.CryptoSource{}
	if cfg.SpinRandomSeed != nil {
		log.WithField("seed", *cfg.SpinRandomSeed).Warn("Using seeded prize source, draws are reproducible")
		source = prize.NewSeededSource(*cfg.SpinRandomSeed)
	}

	// A nil provider must reach the services as a nil interface
	var metrics service.MetricsRecorder
	var requestRecorder api.RequestRecorder
	if metricsProvider != nil {
		metrics = metricsProvider
		requestRecorder = metricsProvider
	}

	guard := service.NewBalanceGuard(metrics)
	handler := api.NewHandler(api.Services{
		Users:       service.NewUserService(uowFactory, guard),
		Products:    service.NewProductService(uowFactory),
		Investments: service.NewInvestmentService(uowFactory),
		Withdrawals: service.NewWithdrawalService(uowFactory),
		Spins:       service.NewSpinService(uowFactory, prize.NewSelector(source), metrics),
		Workflow:    service.NewApprovalWorkflow(uowFactory, statemachine.NewEngine(nil), guard, metrics),
		Reports:     service.NewReportService(uowFactory),
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, cfg.CORSAllowedOrigins, requestRecorder),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	}

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}

	if metricsProvider != nil {
		if err := metricsProvider.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down metrics provider")
		}
	}

	log.Info("Shutdown completed")
	return nil
}
