package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/evotools/evo-dispatch/environments"
	"github.com/evotools/evo-dispatch/handlers"
	"github.com/evotools/evo-dispatch/internal/campaign"
	"github.com/evotools/evo-dispatch/internal/dispatcher"
	"github.com/evotools/evo-dispatch/internal/service"
	"github.com/evotools/evo-dispatch/internal/store"
	"github.com/evotools/evo-dispatch/pkg/cache"
	"github.com/evotools/evo-dispatch/pkg/database"
	"github.com/evotools/evo-dispatch/pkg/gateway"
	"github.com/evotools/evo-dispatch/pkg/logger"
	"github.com/evotools/evo-dispatch/pkg/validator"
	"github.com/evotools/evo-dispatch/routes"
)

// @title evo-dispatch API
// @version 1.0
// @description Scheduled message dispatcher for Evolution API WhatsApp gateways

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}

	// Load config
	cfg := environments.Load()

	// Hard-fail if required secrets are missing
	if cfg.Gateway.APIKey == "" {
		logger.Fatalf("EVOLUTION_API_KEY is required but not set")
	}
	if cfg.Auth.JobsAPIKey == "" {
		logger.Fatalf("JOBS_API_KEY is required but not set")
	}
	if cfg.Auth.DispatcherAPIKey == "" {
		logger.Fatalf("DISPATCHER_API_KEY is required but not set")
	}

	logger.Infof("Starting evo-dispatch...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Init cache
	var cacheClient *cache.Client
	cacheClient, err = cache.NewClient(cfg.Cache)
	if err != nil {
		logger.Warnf("Cache not available, sent-job caching disabled: %v", err)
		cacheClient = nil
	}

	// Initialize gateway client
	gatewayClient := gateway.NewClient(cfg.Gateway)
	logger.Infof("Gateway configured: %s", gatewayClient.BaseURL())

	// Initialize store and change notifier
	notifier := store.NewChangeNotifier()
	jobStore := store.NewJobStore(db, notifier)

	// Initialize template renderer
	renderer, err := campaign.NewRenderer(gatewayClient, cfg.Dispatch.Timezone)
	if err != nil {
		logger.Fatalf("Failed to initialize renderer: %v", err)
	}

	// Initialize service. The nil indirection matters: a typed nil pointer
	// stored in the service's cache interface would not compare equal to nil.
	var jobService *service.JobService
	if cacheClient != nil {
		jobService, err = service.NewJobService(jobStore, gatewayClient, cacheClient, renderer, cfg.Dispatch)
	} else {
		jobService, err = service.NewJobService(jobStore, gatewayClient, nil, renderer, cfg.Dispatch)
	}
	if err != nil {
		logger.Fatalf("Failed to initialize job service: %v", err)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Surface store mutations in the debug log. Anything needing a live view
	// of the job table subscribes the same way.
	go func() {
		changes := notifier.Subscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case <-changes:
				logger.Debugf("Job store changed")
			}
		}
	}()

	// Initialize dispatcher
	disp := dispatcher.New(jobService, cfg.Dispatch.ScanInterval)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, cacheClient)
	jobHandler := handlers.NewJobHandler(jobService)
	campaignHandler := handlers.NewCampaignHandler(jobService)
	dispatcherHandler := handlers.NewDispatcherHandler(disp, ctx, cfg)
	instanceHandler := handlers.NewInstanceHandler(gatewayClient)

	// Auto-start dispatcher so pending jobs survive restarts without an
	// operator having to re-arm the loop.
	if cfg.Dispatch.AutoStart {
		logger.Infof("Auto-starting dispatcher...")
		if err := disp.Start(ctx); err != nil {
			logger.Warnf("Failed to auto-start dispatcher: %v", err)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"apikey",
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, jobHandler, campaignHandler, dispatcherHandler, instanceHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Cancel context to signal all goroutines to stop
	cancel()

	// Stop dispatcher first (with timeout)
	if disp.IsRunning() {
		logger.Infof("Stopping dispatcher...")
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer stopCancel()

		done := make(chan error, 1)
		go func() {
			done <- disp.Stop()
		}()

		select {
		case err := <-done:
			if err != nil {
				logger.Errorf("Error stopping dispatcher: %v", err)
			} else {
				logger.Infof("Dispatcher stopped successfully")
			}
		case <-stopCtx.Done():
			logger.Warnf("Dispatcher stop timeout, forcing shutdown")
		}
	}

	// Shutdown HTTP server (with timeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close cache connection
	if cacheClient != nil {
		logger.Infof("Closing cache connection...")
		if err := cacheClient.Close(); err != nil {
			logger.Errorf("Error closing cache: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
