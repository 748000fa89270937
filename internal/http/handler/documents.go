package handler

import (
	"io"
	"log/slog"
	"mime/multipart"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/http/middleware"
	"docstore/internal/model"
	"docstore/internal/service"
)

const (
	HeaderDocumentDescription = "X-Document-Description"
	HeaderDocumentExtension   = "X-Document-Extension"
	HeaderDocumentSizeKB      = "X-Document-Size-KB"
)

// readFormFile returns the bytes and extension of the multipart field "file".
func readFormFile(c *fiber.Ctx) ([]byte, string, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	data, err := readAll(fh)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Ext(fh.Filename), nil
}

func readAll(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func paramID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	return id, err == nil && id > 0
}

// StoreDocument stores a new document for the calling application.
//
// @Summary  Store a document
// @Tags     documents
// @Accept   multipart/form-data
// @Produce  json
// @Param    X-App-Token    header   string true  "Application token"
// @Param    file           formData file   true  "Document content"
// @Param    documentTypeId formData int    true  "Document type"
// @Param    description    formData string false "Description"
// @Param    rootObjectKey  formData string false "Root object external key"
// @Param    docTypeKey     formData string false "Document type external key"
// @Success  201 {object} model.StoredDocument
// @Failure  400 {object} errorPayload
// @Failure  401 {object} errorPayload
// @Failure  403 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /documents [post]
func StoreDocument(engine service.StorageEngine, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		typeID, err := strconv.ParseInt(c.FormValue("documentTypeId"), 10, 64)
		if err != nil || typeID <= 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_DOCUMENT_TYPE", "documentTypeId is required")
		}
		data, ext, err := readFormFile(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		doc, err := engine.StoreNew(c.UserContext(), model.Upload{
			DocumentTypeID:        typeID,
			Description:           c.FormValue("description"),
			FileExtension:         ext,
			RootObjectExternalKey: c.FormValue("rootObjectKey"),
			DocTypeExternalKey:    c.FormValue("docTypeKey"),
			Bytes:                 data,
		}, middleware.AppTokenFrom(c))
		if err != nil {
			return writeServiceError(c, logger, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ReplaceDocument overwrites the content of a replaceable document.
//
// @Summary  Replace document content
// @Tags     documents
// @Accept   multipart/form-data
// @Produce  json
// @Param    X-App-Token header   string true  "Application token"
// @Param    id          path     int    true  "Document ID"
// @Param    file        formData file   true  "New content"
// @Param    description formData string false "New description"
// @Success  200 {object} model.StoredDocument
// @Failure  404 {object} errorPayload
// @Failure  409 {object} errorPayload
// @Router   /documents/{id} [put]
func ReplaceDocument(engine service.StorageEngine, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		data, ext, err := readFormFile(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		doc, err := engine.Replace(c.UserContext(), model.ReplaceRequest{
			StoredDocumentID: id,
			Description:      c.FormValue("description"),
			FileExtension:    ext,
			Bytes:            data,
		}, middleware.AppTokenFrom(c))
		if err != nil {
			return writeServiceError(c, logger, err)
		}
		return c.JSON(doc)
	}
}

// GetDocument streams a document's bytes with its descriptive headers.
//
// @Summary  Retrieve a document
// @Tags     documents
// @Produce  octet-stream
// @Param    X-App-Token header string true "Application token"
// @Param    id          path   int    true "Document ID"
// @Success  200 {file} binary
// @Failure  403 {object} errorPayload
// @Failure  404 {object} errorPayload
// @Router   /documents/{id} [get]
func GetDocument(engine service.StorageEngine, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := paramID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := engine.Get(c.UserContext(), id, middleware.AppTokenFrom(c))
		if err != nil {
			return writeServiceError(c, logger, err)
		}

		c.Set(fiber.HeaderContentType, doc.MediaType)
		c.Set(fiber.HeaderContentDisposition, `inline; filename="`+strconv.FormatInt(doc.ID, 10)+"."+doc.Extension+`"`)
		c.Set(HeaderDocumentDescription, doc.Description)
		c.Set(HeaderDocumentExtension, doc.Extension)
		c.Set(HeaderDocumentSizeKB, strconv.FormatInt(doc.SizeInKB, 10))
		return c.Send(doc.Bytes)
	}
}
