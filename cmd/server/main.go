package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/ashgrove/millwork/internal"
	"github.com/ashgrove/millwork/internal/handler/api"
	"github.com/ashgrove/millwork/internal/middleware"
	"github.com/ashgrove/millwork/internal/postgres"
	"github.com/ashgrove/millwork/internal/router"
	"github.com/ashgrove/millwork/internal/routes"
	"github.com/ashgrove/millwork/internal/service"
	"github.com/ashgrove/millwork/internal/transport"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	// Verify database connection
	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	// Initialize stores
	invoiceStore := postgres.NewInvoiceStore(pool)
	recipientStore := postgres.NewRecipientStore(pool)
	routingStore := postgres.NewRoutingStore(pool)
	historyStore := postgres.NewHistoryStore(pool)

	// Initialize transport providers
	emailSender := transport.NewSMTPEmailSender(transport.SMTPConfig{
		Host:     cfg.Email.Host,
		Port:     int(cfg.Email.Port),
		Username: cfg.Email.Username,
		Password: cfg.Email.Password,
		From:     cfg.Email.From,
		FromName: cfg.Email.FromName,
	}, logger)

	var smsSender transport.SMSSender
	if cfg.SMS.BaseURL != "" {
		smsSender = transport.NewSMSGatewaySender(transport.SMSGatewayConfig{
			BaseURL:  cfg.SMS.BaseURL,
			APIKey:   cfg.SMS.APIToken,
			SenderID: cfg.SMS.FromNumber,
		}, logger)
		logger.Info("SMS gateway configured", "base_url", cfg.SMS.BaseURL)
	} else {
		smsSender = transport.NewLogSMSSender(logger)
		logger.Warn("SMS gateway not configured, texts will be logged and dropped")
	}

	// Initialize services
	invoiceService := service.NewInvoiceService(invoiceStore, logger)
	recipientDirectory := service.NewRecipientDirectory(recipientStore, routingStore, logger)
	routingEngine := service.NewRoutingEngine(recipientStore, routingStore, logger)
	deliveryHistory := service.NewDeliveryHistory(historyStore, logger)
	dispatcher := service.NewDispatcher(routingEngine, emailSender, smsSender, deliveryHistory,
		service.DispatcherConfig{
			PerRecipientTimeout: cfg.Dispatch.PerRecipientTimeout,
			MaxParallel:         cfg.Dispatch.MaxParallel,
		}, logger)

	// Initialize handlers
	apiDeps := routes.APIDeps{
		InvoiceHandler:   api.NewInvoiceHandler(invoiceService, dispatcher, logger),
		RecipientHandler: api.NewRecipientHandler(recipientDirectory, logger),
		RoutingHandler:   api.NewRoutingHandler(routingEngine, dispatcher, logger),
		HistoryHandler:   api.NewHistoryHandler(deliveryHistory, logger),
	}

	// Initialize metrics
	metrics := middleware.NewMetrics("millwork")

	// Build router with global middleware
	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		metrics.Middleware,
		router.Logger(logger),
	)

	// Prometheus metrics endpoint
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		metrics.Handler().ServeHTTP(w, req)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.Ping(req.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Register route groups
	routes.RegisterAPIRoutes(r, apiDeps)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "address", addr, "env", cfg.Env)

	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
