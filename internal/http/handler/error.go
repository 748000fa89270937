package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/http/middleware"
	"docstore/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a standardized JSON error response without leaking internal errors.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: middleware.RequestIDFrom(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

// serviceErrors maps service sentinels to responses. The sentinel text is safe to show.
var serviceErrors = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrInvalidToken, fiber.StatusUnauthorized, "INVALID_TOKEN"},
	{service.ErrAccessDenied, fiber.StatusForbidden, "ACCESS_DENIED"},
	{service.ErrDocumentTypeMismatch, fiber.StatusForbidden, "DOCUMENT_TYPE_MISMATCH"},
	{service.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{service.ErrEntityNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{service.ErrDuplicateKey, fiber.StatusConflict, "DUPLICATE_KEY"},
	{service.ErrReplaceNotAllowed, fiber.StatusConflict, "REPLACE_NOT_ALLOWED"},
	{service.ErrInvalidUpload, fiber.StatusBadRequest, "INVALID_UPLOAD"},
	{service.ErrInvalidEntity, fiber.StatusBadRequest, "INVALID_ENTITY"},
	{service.ErrUnknownStorageNode, fiber.StatusBadRequest, "UNKNOWN_STORAGE_NODE"},
	{service.ErrNodeNotLocal, fiber.StatusBadRequest, "NODE_NOT_LOCAL"},
}

// writeServiceError translates an engine or admin error. Unmapped errors are logged and
// reported as 500.
func writeServiceError(c *fiber.Ctx, logger *slog.Logger, err error) error {
	var ife *service.ImmutableFieldError
	if errors.As(err, &ife) {
		return writeError(c, fiber.StatusConflict, "IMMUTABLE_FIELD", ife.Error())
	}
	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			if m.err == service.ErrInvalidEntity {
				return writeError(c, m.status, m.code, err.Error())
			}
			return writeError(c, m.status, m.code, m.err.Error())
		}
	}
	if logger != nil {
		logger.Error("request_failed",
			"request_id", middleware.RequestIDFrom(c),
			"method", c.Method(),
			"path", c.Path(),
			"error", err,
		)
	}
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "PAYLOAD_TOO_LARGE", "upload exceeds the size limit")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
