package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/http/middleware"
	"docstore/internal/service"
)

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	DB      Pinger
	Engine  service.StorageEngine
	Admin   service.KeyEntityAdmin
	NodeKey string
	Logger  *slog.Logger
}

// RegisterRoutes attaches client, peer, admin and health routes to app.
func RegisterRoutes(app *fiber.App, d Deps) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	docs := app.Group("/documents", middleware.RequireAppToken())
	docs.Post("/", StoreDocument(d.Engine, logger))
	docs.Put("/:id", ReplaceDocument(d.Engine, logger))
	docs.Get("/:id", GetDocument(d.Engine, logger))

	node := app.Group("/node", middleware.RequireNodeKey(d.NodeKey))
	node.Get("/alive", NodeAlive())
	node.Post("/documents", ReceiveReplica(d.Engine, logger))
	node.Get("/documents", ServeReplica(d.Engine, logger))
	node.Delete("/documents", DeleteReplica(d.Engine, logger))

	registerAdmin(app.Group("/admin", middleware.RequireNodeKey(d.NodeKey)), d.Admin, logger)
}
