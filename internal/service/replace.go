package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"docstore/internal/model"
	"docstore/internal/repository"
)

func (s *storageEngine) Replace(ctx context.Context, req model.ReplaceRequest, appToken string) (doc *model.StoredDocument, err error) {
	const op = "replace"
	defer recoverOp(s.logger, op, &err)
	ctx, span := s.startSpan(ctx, op, attribute.Int64("document_id", req.StoredDocumentID))
	defer func() { endSpan(span, err) }()

	s.cache.CheckAndMaybeRefresh(ctx)

	app, err := s.application(appToken)
	if err != nil {
		return nil, opError(op, "authenticate", err)
	}
	if err := s.checkSize(len(req.Bytes)); err != nil {
		return nil, opError(op, "validate upload", err)
	}

	// one replacement per document at a time within this process
	s.replacing.Lock(req.StoredDocumentID)
	defer s.replacing.Unlock(req.StoredDocumentID)

	doc, err = s.findDocument(ctx, req.StoredDocumentID)
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
	if !dt.StorageMode.Replaceable() {
		return nil, opError(op, fmt.Sprintf("document %d is %s", doc.ID, dt.StorageMode), ErrReplaceNotAllowed)
	}

	ext := fileExtension(doc.FileName)
	if req.FileExtension != "" {
		ext = req.FileExtension
	}
	ext, err = normalizeExtension(ext)
	if err != nil {
		return nil, opError(op, "validate upload", err)
	}

	primary, err := s.storageNode(doc.PrimaryStorageNodeID)
	if err != nil {
		return nil, opError(op, "resolve primary node", err)
	}

	previous := *doc
	doc.FileName = fmt.Sprintf("%d-%s.%s", doc.ID, uuid.NewString()[:8], ext)
	doc.SizeInKB = sizeInKB(len(req.Bytes))
	doc.Status = model.DocumentStatusReplaced
	if req.Description != "" {
		doc.Description = req.Description
	}

	if err := s.putFile(ctx, primary, doc.StorageFolder, doc.FileName, req.Bytes, appToken); err != nil {
		s.discardFile(ctx, primary, doc.StorageFolder, doc.FileName, appToken)
		return nil, opError(op, fmt.Sprintf("write %s to node %d", doc.FileName, primary.ID), err)
	}
	if err := s.docs.Update(ctx, doc); err != nil {
		s.discardFile(ctx, primary, doc.StorageFolder, doc.FileName, appToken)
		return nil, opError(op, "persist metadata", err)
	}

	// metadata now points at the new file; the old one is only garbage from here on
	if err := s.removeFile(ctx, primary, previous.StorageFolder, previous.FileName, appToken); err != nil {
		s.logger.Warn("replaced_file_not_removed",
			"document_id", doc.ID, "storage_node_id", primary.ID, "file_name", previous.FileName, "error", err)
	}

	s.replaceSecondary(ctx, doc, &previous, req.Bytes, appToken)

	s.metrics.DocumentReplaced(dt.StorageMode.String())
	s.logger.Info("document_replaced",
		"document_id", doc.ID,
		"previous_file_name", previous.FileName,
		"file_name", doc.FileName,
	)
	return doc, nil
}

func (s *storageEngine) replaceSecondary(ctx context.Context, doc, previous *model.StoredDocument, data []byte, appToken string) {
	if doc.SecondaryStorageNodeID == 0 {
		return
	}
	node, err := s.storageNode(doc.SecondaryStorageNodeID)
	if err == nil {
		err = s.putFile(ctx, node, doc.StorageFolder, doc.FileName, data, appToken)
	}
	if err != nil {
		s.enqueueReplication(ctx, doc, "replace", err)
		return
	}
	if err := s.removeFile(ctx, node, previous.StorageFolder, previous.FileName, appToken); err != nil {
		s.logger.Warn("replaced_file_not_removed",
			"document_id", doc.ID, "storage_node_id", node.ID, "file_name", previous.FileName, "error", err)
	}
}

func (s *storageEngine) findDocument(ctx context.Context, id int64) (*model.StoredDocument, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("document %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if !doc.Status.Live() {
		return nil, fmt.Errorf("document %d is %s: %w", id, doc.Status, ErrNotFound)
	}
	return doc, nil
}
