package service

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.opentelemetry.io/otel/attribute"

	"docstore/internal/model"
)

func (s *storageEngine) Get(ctx context.Context, id int64, appToken string) (out *model.RetrievedDocument, err error) {
	const op = "get"
	defer recoverOp(s.logger, op, &err)
	ctx, span := s.startSpan(ctx, op, attribute.Int64("document_id", id))
	defer func() { endSpan(span, err) }()

	s.cache.CheckAndMaybeRefresh(ctx)

	app, err := s.application(appToken)
	if err != nil {
		return nil, opError(op, "authenticate", err)
	}
	doc, err := s.findDocument(ctx, id)
	if err != nil {
		return nil, opError(op, "load document", err)
	}
	dt, err := s.documentType(doc.DocumentTypeID)
	if err != nil {
		return nil, opError(op, "resolve document type", err)
	}
	if dt.ApplicationID != app.ID {
		return nil, opError(op, fmt.Sprintf("document %d", doc.ID), ErrAccessDenied)
	}

	data, source, err := s.readDocument(ctx, doc, appToken)
	if err != nil {
		return nil, opError(op, fmt.Sprintf("read %s", doc.FileName), err)
	}

	if err := s.docs.RecordAccess(ctx, doc.ID, s.clk.Now().UTC()); err != nil {
		s.logger.Warn("record_access_failed", "document_id", doc.ID, "error", err)
	}
	s.metrics.DocumentRetrieved(source)

	ext := fileExtension(doc.FileName)
	return &model.RetrievedDocument{
		ID:          doc.ID,
		Description: doc.Description,
		Extension:   ext,
		SizeInKB:    doc.SizeInKB,
		MediaType:   mediaType(ext),
		Bytes:       data,
	}, nil
}

// readDocument reads from the primary node and falls back to the secondary.
func (s *storageEngine) readDocument(ctx context.Context, doc *model.StoredDocument, appToken string) ([]byte, string, error) {
	primary, err := s.storageNode(doc.PrimaryStorageNodeID)
	if err == nil {
		var data []byte
		if data, err = s.getFile(ctx, primary, doc.StorageFolder, doc.FileName, appToken); err == nil {
			return data, "primary", nil
		}
	}
	if doc.SecondaryStorageNodeID == 0 {
		return nil, "", err
	}

	s.logger.Warn("primary_read_failed", "document_id", doc.ID, "storage_node_id", doc.PrimaryStorageNodeID, "error", err)
	secondary, serr := s.storageNode(doc.SecondaryStorageNodeID)
	if serr != nil {
		return nil, "", err
	}
	data, serr := s.getFile(ctx, secondary, doc.StorageFolder, doc.FileName, appToken)
	if serr != nil {
		return nil, "", fmt.Errorf("primary: %w; secondary: %v", err, serr)
	}
	return data, "secondary", nil
}

func mediaType(ext string) string {
	if ext == "" {
		return fiber.MIMEOctetStream
	}
	if mt := utils.GetMIME(ext); mt != "" {
		return mt
	}
	return fiber.MIMEOctetStream
}
