package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/lendora/servicing-api/internal/config"
	"github.com/lendora/servicing-api/internal/database"
	"github.com/lendora/servicing-api/internal/handlers"
	"github.com/lendora/servicing-api/internal/jobs"
	"github.com/lendora/servicing-api/internal/middleware"
	"github.com/lendora/servicing-api/internal/repository"
	"github.com/lendora/servicing-api/internal/services"
	"github.com/lendora/servicing-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database")

	if err := database.Migrate(db); err != nil {
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	repos := repository.NewRepositories(db)

	// Initialize background worker
	worker := jobs.NewWorker(cfg.WorkerCount)
	logger.Info("Started background worker", "goroutines", cfg.WorkerCount)

	// Initialize services
	svcs := services.NewServices(repos, worker, cfg, db)

	// Schedule recurring jobs
	scheduleJobs(worker, svcs, cfg)

	// Initialize handlers
	h := handlers.NewHandlers(svcs)

	// Setup router
	router := setupRouter(h, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	// Shutdown background worker
	worker.Shutdown()
	logger.Info("Background worker stopped")

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

// scheduleJobs wires the recurring daily accrual run. Each tick accrues
// yesterday; already-covered dates are skipped, so a restart mid-cycle
// never double-posts.
func scheduleJobs(worker *jobs.Worker, svcs *services.Services, cfg *config.Config) {
	interval := time.Duration(cfg.DailyAccrualInterval) * time.Hour
	worker.ScheduleEveryImmediate(interval, func(ctx context.Context) error {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		run, err := svcs.Accrual.RunForDate(ctx, yesterday)
		if err != nil {
			return err
		}
		logger.Info("Daily accrual run finished",
			"run_id", run.ID,
			"processed", run.ProcessedCount,
			"skipped", run.SkippedCount,
			"errors", run.ErrorCount)
		return nil
	})
}

func setupRouter(h *handlers.Handlers, cfg *config.Config) *gin.Engine {
	router := gin.New()

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", h.Health.Index)

		// Loans
		v1.GET("/loans", h.Loan.Index)
		v1.POST("/loans", h.Loan.Create)
		v1.GET("/loans/:loan_id", h.Loan.Show)
		v1.DELETE("/loans/:loan_id", h.Loan.Deactivate)
		v1.GET("/loans/:loan_id/state", h.Loan.State)

		// Ledger events
		v1.GET("/loans/:loan_id/events", h.Event.Index)
		v1.POST("/loans/:loan_id/events", h.Event.Create)
		v1.POST("/events/:event_id/approve", h.Event.Approve)
		v1.POST("/events/:event_id/reverse", h.Event.Reverse)

		// Billing periods
		v1.GET("/loans/:loan_id/periods", h.Period.Index)
		v1.POST("/loans/:loan_id/periods/generate", h.Period.Generate)
		v1.GET("/loans/:loan_id/summary", h.Period.Summary)
		v1.GET("/periods/:period_id/accrual", h.Period.Accrual)
		v1.GET("/periods/:period_id/export", h.Period.ExportXLSX)
		v1.POST("/periods/:period_id/submit", h.Period.Submit)
		v1.POST("/periods/:period_id/approve", h.Period.Approve)
		v1.POST("/periods/:period_id/send", h.Period.Send)
		v1.POST("/periods/:period_id/reopen", h.Period.Reopen)

		// Batch accrual
		v1.POST("/accruals/run", h.Accrual.Run)
		v1.POST("/accruals/backfill", h.Accrual.Backfill)
		v1.GET("/accruals/runs", h.Accrual.Runs)
		v1.GET("/accruals/runs/:run_id", h.Accrual.ShowRun)
		v1.GET("/loans/:loan_id/accruals", h.Accrual.Entries)
		v1.GET("/loans/:loan_id/accruals/export", h.Accrual.EntriesCSV)

		// Operational
		v1.GET("/jobs/status", h.Job.Status)
		v1.GET("/audits", h.Audit.Index)
	}

	return router
}
