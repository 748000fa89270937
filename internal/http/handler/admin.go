package handler

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/model"
	"docstore/internal/service"
)

func createEntity[T any](create func(context.Context, *T) (*T, error), logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		in := new(T)
		if err := c.BodyParser(in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must be a JSON object")
		}
		out, err := create(c.UserContext(), in)
		if err != nil {
			return writeServiceError(c, logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(out)
	}
}

func updateEntity[T any](setID func(*T, int64), update func(context.Context, *T) error, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		in := new(T)
		if err := c.BodyParser(in); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "body must be a JSON object")
		}
		setID(in, id)
		if err := update(c.UserContext(), in); err != nil {
			return writeServiceError(c, logger, err)
		}
		return c.JSON(in)
	}
}

// registerAdmin mounts create/update endpoints for every key entity on r.
func registerAdmin(r fiber.Router, admin service.KeyEntityAdmin, logger *slog.Logger) {
	r.Post("/applications", createEntity(admin.CreateApplication, logger))
	r.Put("/applications/:id", updateEntity(func(a *model.Application, id int64) { a.ID = id }, admin.UpdateApplication, logger))

	r.Post("/root-objects", createEntity(admin.CreateRootObject, logger))
	r.Put("/root-objects/:id", updateEntity(func(ro *model.RootObject, id int64) { ro.ID = id }, admin.UpdateRootObject, logger))

	r.Post("/document-types", createEntity(admin.CreateDocumentType, logger))
	r.Put("/document-types/:id", updateEntity(func(dt *model.DocumentType, id int64) { dt.ID = id }, admin.UpdateDocumentType, logger))

	r.Post("/storage-nodes", createEntity(admin.CreateStorageNode, logger))
	r.Put("/storage-nodes/:id", updateEntity(func(n *model.StorageNode, id int64) { n.ID = id }, admin.UpdateStorageNode, logger))
}
