package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	units "github.com/docker/go-units"
	"go.opentelemetry.io/otel/attribute"

	"docstore/internal/cache"
	"docstore/internal/model"
	"docstore/internal/storagepath"
)

const maxExtensionLength = 10

func (s *storageEngine) StoreNew(ctx context.Context, upload model.Upload, appToken string) (doc *model.StoredDocument, err error) {
	const op = "store"
	defer recoverOp(s.logger, op, &err)
	ctx, span := s.startSpan(ctx, op, attribute.Int64("document_type_id", upload.DocumentTypeID))
	defer func() { endSpan(span, err) }()

	s.cache.CheckAndMaybeRefresh(ctx)

	app, err := s.application(appToken)
	if err != nil {
		return nil, opError(op, "authenticate", err)
	}
	dt, err := s.documentType(upload.DocumentTypeID)
	if err != nil {
		return nil, opError(op, "resolve document type", err)
	}
	if dt.ApplicationID != app.ID {
		return nil, opError(op, fmt.Sprintf("document type %d, application %d", dt.ID, app.ID), ErrDocumentTypeMismatch)
	}

	ext, err := normalizeExtension(upload.FileExtension)
	if err != nil {
		return nil, opError(op, "validate upload", err)
	}
	if err := s.checkSize(len(upload.Bytes)); err != nil {
		return nil, opError(op, "validate upload", err)
	}

	if !dt.AllowSameDTEKeys {
		dup, err := s.docs.ExistsLive(ctx, dt.ID, upload.RootObjectExternalKey, upload.DocTypeExternalKey)
		if err != nil {
			return nil, opError(op, "check duplicate keys", err)
		}
		if dup {
			return nil, opError(op, fmt.Sprintf("root object key %q, doc type key %q", upload.RootObjectExternalKey, upload.DocTypeExternalKey), ErrDuplicateKey)
		}
	}

	now := s.clk.Now().UTC()
	placement, err := storagepath.Resolve(dt, now)
	if err != nil {
		return nil, opError(op, "resolve storage path", err)
	}
	primary, err := s.storageNode(dt.ActiveStorageNode1ID)
	if err != nil {
		return nil, opError(op, "resolve primary node", err)
	}

	var secondaryID int64
	if dt.ActiveStorageNode2ID != 0 && dt.ActiveStorageNode2ID != primary.ID {
		secondaryID = dt.ActiveStorageNode2ID
	}

	doc, err = s.docs.Create(ctx, &model.StoredDocument{
		Description:            upload.Description,
		StorageFolder:          placement.Folder,
		DocumentTypeID:         dt.ID,
		PrimaryStorageNodeID:   primary.ID,
		SecondaryStorageNodeID: secondaryID,
		Status:                 model.DocumentStatusInitialSave,
		IsAlive:                dt.StorageMode != model.StorageModeTemporary,
		RootObjectExternalKey:  upload.RootObjectExternalKey,
		DocTypeExternalKey:     upload.DocTypeExternalKey,
		SizeInKB:               sizeInKB(len(upload.Bytes)),
		CreatedUTC:             now,
	})
	if err != nil {
		return nil, opError(op, "allocate document", err)
	}
	doc.FileName = fmt.Sprintf("%d.%s", doc.ID, ext)

	if err := s.putFile(ctx, primary, doc.StorageFolder, doc.FileName, upload.Bytes, appToken); err != nil {
		s.discardFile(ctx, primary, doc.StorageFolder, doc.FileName, appToken)
		s.discardRow(ctx, doc.ID)
		return nil, opError(op, fmt.Sprintf("write %s to node %d", doc.FileName, primary.ID), err)
	}

	if err := s.commitNew(ctx, doc, placement.ExpiresAt); err != nil {
		s.discardFile(ctx, primary, doc.StorageFolder, doc.FileName, appToken)
		s.discardRow(ctx, doc.ID)
		return nil, opError(op, "persist metadata", err)
	}

	s.replicate(ctx, doc, upload.Bytes, appToken, "store")

	s.metrics.DocumentStored(dt.StorageMode.String())
	s.logger.Info("document_stored",
		"document_id", doc.ID,
		"document_type_id", dt.ID,
		"application_id", app.ID,
		"storage_folder", doc.StorageFolder,
		"file_name", doc.FileName,
		"size", units.HumanSize(float64(len(upload.Bytes))),
	)
	return doc, nil
}

func (s *storageEngine) commitNew(ctx context.Context, doc *model.StoredDocument, expiresAt *time.Time) error {
	if err := s.docs.Update(ctx, doc); err != nil {
		return err
	}
	if expiresAt == nil {
		return nil
	}
	return s.expirations.Create(ctx, &model.ExpiringDocument{
		StoredDocumentID:  doc.ID,
		ExpirationDateUTC: *expiresAt,
	})
}

func (s *storageEngine) discardRow(ctx context.Context, id int64) {
	if err := s.docs.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Warn("discard_document_row_failed", "document_id", id, "error", err)
	}
}

// replicate copies data to the document's secondary node. A failure never undoes the primary
// write; it is recorded as a replication task for a later sweep.
func (s *storageEngine) replicate(ctx context.Context, doc *model.StoredDocument, data []byte, appToken, reason string) {
	if doc.SecondaryStorageNodeID == 0 {
		return
	}
	node, err := s.storageNode(doc.SecondaryStorageNodeID)
	if err == nil {
		err = s.putFile(ctx, node, doc.StorageFolder, doc.FileName, data, appToken)
	}
	if err == nil {
		return
	}
	s.enqueueReplication(ctx, doc, reason, err)
}

func (s *storageEngine) enqueueReplication(ctx context.Context, doc *model.StoredDocument, reason string, cause error) {
	s.metrics.ReplicationFailed()
	s.logger.Warn("replication_failed",
		"document_id", doc.ID,
		"from_node_id", doc.PrimaryStorageNodeID,
		"to_node_id", doc.SecondaryStorageNodeID,
		"reason", reason,
		"error", cause,
	)
	task := &model.ReplicationTask{
		StoredDocumentID: doc.ID,
		FromNodeID:       doc.PrimaryStorageNodeID,
		ToNodeID:         doc.SecondaryStorageNodeID,
		FileName:         doc.FileName,
		Reason:           reason,
		CreatedUTC:       s.clk.Now().UTC(),
	}
	if err := s.replication.Enqueue(context.WithoutCancel(ctx), task); err != nil {
		s.logger.Error("replication_task_enqueue_failed", "document_id", doc.ID, "error", err)
	}
}

func (s *storageEngine) application(token string) (*model.Application, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	app, err := s.cache.GetApplicationByToken(token)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	return app, nil
}

func (s *storageEngine) documentType(id int64) (*model.DocumentType, error) {
	dt, err := s.cache.GetDocumentType(id)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, fmt.Errorf("document type %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return dt, nil
}

func (s *storageEngine) checkSize(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty content", ErrInvalidUpload)
	}
	if s.maxUpload > 0 && int64(n) > s.maxUpload {
		return fmt.Errorf("%w: %s exceeds limit of %s", ErrInvalidUpload,
			units.HumanSize(float64(n)), units.HumanSize(float64(s.maxUpload)))
	}
	return nil
}

// normalizeExtension accepts "pdf" or ".pdf" and returns the lower-cased extension without the dot.
func normalizeExtension(ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" || len(ext) > maxExtensionLength {
		return "", fmt.Errorf("%w: file extension %q", ErrInvalidUpload, ext)
	}
	for _, r := range ext {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return "", fmt.Errorf("%w: file extension %q", ErrInvalidUpload, ext)
		}
	}
	return ext, nil
}

func sizeInKB(n int) int64 {
	return int64((n + 1023) / 1024)
}
