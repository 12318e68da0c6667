package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	fiberadaptor "github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"markui/docs"
	"markui/internal/config"
	"markui/internal/database"
	"markui/internal/database/migration"
	handlers "markui/internal/http/handler"
	"markui/internal/http/middleware"
	"markui/internal/otel"
	"markui/internal/repository/postgres"
	"markui/internal/retention"
	"markui/internal/service"
	"markui/internal/storage"
)

// @title MarkUI Backend
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	if err := cfg.Retention.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	loc := time.UTC
	ctx := context.Background()

	// Initialize OpenTelemetry tracing (noop when disabled)
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer shutdownTracing(ctx)

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize object storage: local disk by default, MinIO when configured
	var objStore storage.Storage
	switch cfg.StorageDriver {
	case "minio":
		objStore, err = storage.NewMinIO(cfg.MinIO)
	case "local":
		objStore, err = storage.NewLocal(cfg.Local)
	default:
		log.Fatalf("unknown storage driver: %q", cfg.StorageDriver)
	}
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Shared prometheus registry for HTTP and retention metrics
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector())
	promReg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize repositories, retention subsystem, and services
	docRepo := postgres.NewDocumentPostgres(db)

	retMetrics, err := retention.NewMetrics(promReg)
	if err != nil {
		log.Fatalf("failed to register retention metrics: %v", err)
	}
	retMgr := retention.NewManager(docRepo, objStore, cfg.Retention, retMetrics)
	sweeper, err := retention.NewScheduler(retMgr, cfg.Retention.CheckInterval())
	if err != nil {
		log.Fatalf("failed to create cleanup scheduler: %v", err)
	}

	docSvc := service.NewDocumentService(objStore, docRepo, retMgr)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	// Distributed tracing spans per request
	app.Use(otelfiber.Middleware())

	promMiddleware, err := middleware.NewPrometheusMiddleware(promReg)
	if err != nil {
		log.Fatalf("failed to register http metrics: %v", err)
	}
	app.Use(promMiddleware.Handler())

	// Register HTTP routes with injected service and retention manager
	handlers.RegisterRoutes(app, db, docSvc, retMgr)

	app.Get("/metrics", fiberadaptor.HTTPHandler(
		promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
	))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	// Start the periodic storage sweep
	sweeper.Start()

	addr := ":" + cfg.Port

	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop

	if err := app.Shutdown(); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	sweeper.Stop()
}
