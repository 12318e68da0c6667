package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"markui/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin; business logic lives in the service and retention
// layers.
func RegisterRoutes(app *fiber.App, db *sql.DB, docSvc service.DocumentService, mgr RetentionManager) {
	// Health endpoints
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	// Document endpoints
	app.Get("/documents", ListDocuments(docSvc))
	app.Post("/documents", UploadDocument(docSvc))
	app.Get("/documents/:id", GetDocument(docSvc))
	app.Get("/documents/:id/download", DownloadDocument(docSvc))
	app.Delete("/documents/:id", DeleteDocument(docSvc))
	app.Post("/documents/:id/processed", MarkDocumentProcessed(docSvc))

	// Storage retention control surface
	app.Get("/storage/info", StorageInfo(mgr))
	app.Post("/storage/cleanup", TriggerCleanup(mgr))
}
