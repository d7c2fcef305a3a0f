package main

import (
	"database/sql"
	"log"

	"invoicepilot/internal/ai"
	"invoicepilot/internal/config"
	"invoicepilot/internal/gmail"
	"invoicepilot/internal/handler"
	"invoicepilot/internal/logger"
	"invoicepilot/internal/pdftext"
	"invoicepilot/internal/repository"
	"invoicepilot/internal/repository/memory"
	"invoicepilot/internal/repository/postgres"
	"invoicepilot/internal/router"
	"invoicepilot/internal/scheduler"
	"invoicepilot/internal/service"
	"invoicepilot/internal/sheets"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatal("Config validation failed:", err)
	}

	// Initialize logger
	appLogger := logger.New()

	// Initialize repositories (conditionally use postgres or in-memory based on DATABASE_URL)
	var userRepo repository.UserRepository
	var invoiceRepo repository.InvoiceRepository

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		defer db.Close()

		userRepo = postgres.NewPostgresUserRepository(db)
		invoiceRepo = postgres.NewPostgresInvoiceRepository(db)

		// Initialize database tables
		if err := postgres.InitializeDatabase(db); err != nil {
			log.Fatal("Failed to initialize database:", err)
		}

		appLogger.Info("Using PostgreSQL repositories")
	} else {
		userRepo = memory.NewInMemoryUserRepository()
		invoiceRepo = memory.NewInMemoryInvoiceRepository()

		appLogger.Info("Using in-memory repositories")
	}

	// Initialize services
	authService := service.NewAuthService(userRepo, appLogger)

	// Pipeline capabilities: Gmail search/download, PDF text, AI extraction,
	// and the optional spreadsheet mirror
	gmailClient := gmail.NewGmailClient(cfg, appLogger)
	aiClient := ai.NewAIClient(cfg.AIKey, appLogger)
	textExtractor := pdftext.NewExtractor(appLogger)
	sheetsClient := sheets.NewSheetsClient(cfg, appLogger)

	invoiceService := service.NewInvoiceService(
		invoiceRepo,
		userRepo,
		gmailClient,
		aiClient,
		textExtractor,
		sheetsClient,
		appLogger,
		cfg.MaxScanResults,
	)

	// Start the nightly fleet run
	fleetScheduler := scheduler.NewFleetScheduler(invoiceService, userRepo, appLogger, cfg.SyncCron)
	if err := fleetScheduler.Start(); err != nil {
		log.Fatal("Failed to start fleet scheduler:", err)
	}
	defer fleetScheduler.Stop()

	// Initialize handlers
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	authHandler := handler.NewAuthHandler(authService, cfg, e.Logger)
	invoiceHandler := handler.NewInvoiceHandler(invoiceService, authHandler, e.Logger)
	userHandler := handler.NewUserHandler(authService, authHandler, e.Logger)

	// Setup routes
	router.SetupRoutes(e, authHandler, invoiceHandler, userHandler)

	// Start server
	appLogger.Info("Starting server on port", cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		appLogger.Error("Failed to start server:", err)
	}
}
