package handler

import (
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/model"
	"docstore/internal/nodeclient"
	"docstore/internal/service"
)

// NodeAlive answers peer liveness checks.
func NodeAlive() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ReceiveReplica accepts a file pushed by another host: a "file" part and a "meta" JSON part.
func ReceiveReplica(engine service.StorageEngine, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var t model.PeerTransfer
		if err := json.Unmarshal([]byte(c.FormValue(nodeclient.FormMeta)), &t); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_META", "meta must be a JSON object")
		}
		fh, err := c.FormFile(nodeclient.FormFile)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		if t.Bytes, err = readAll(fh); err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		if err := engine.ReceiveFromPeer(c.UserContext(), t); err != nil {
			return writeServiceError(c, logger, err)
		}
		return c.SendStatus(fiber.StatusCreated)
	}
}

// ServeReplica returns a file held on a local node to another host.
func ServeReplica(engine service.StorageEngine, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, ok := transferFromQuery(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_QUERY", "storageNodeId, storagePath and fileName are required")
		}
		data, err := engine.ReadForPeer(c.UserContext(), t)
		if err != nil {
			return writeServiceError(c, logger, err)
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
		return c.Send(data)
	}
}

// DeleteReplica removes a file on a local node for another host.
func DeleteReplica(engine service.StorageEngine, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		t, ok := transferFromQuery(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_QUERY", "storageNodeId, storagePath and fileName are required")
		}
		if err := engine.DeleteForPeer(c.UserContext(), t); err != nil {
			return writeServiceError(c, logger, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func transferFromQuery(c *fiber.Ctx) (model.PeerTransfer, bool) {
	id, err := strconv.ParseInt(c.Query("storageNodeId"), 10, 64)
	t := model.PeerTransfer{
		StorageNodeID: id,
		StoragePath:   c.Query("storagePath"),
		FileName:      c.Query("fileName"),
	}
	return t, err == nil && t.StoragePath != "" && t.FileName != ""
}
