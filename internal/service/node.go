package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"docstore/internal/cache"
	"docstore/internal/model"
	"docstore/internal/storage"
	"docstore/internal/storagepath"
)

func (s *storageEngine) storageNode(id int64) (*model.StorageNode, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: no node configured", ErrUnknownStorageNode)
	}
	node, err := s.cache.GetStorageNode(id)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrUnknownStorageNode, id)
		}
		return nil, err
	}
	if !s.isLocal(node) && node.Host == nil {
		return nil, fmt.Errorf("%w: node %d has no server host", ErrUnknownStorageNode, id)
	}
	return node, nil
}

func (s *storageEngine) localPath(node *model.StorageNode, folder, fileName string) string {
	return storagepath.PhysicalPath(s.local.Path, node.NodePath, folder, fileName)
}

func transferFor(node *model.StorageNode, folder, fileName string, data []byte) model.PeerTransfer {
	return model.PeerTransfer{StorageNodeID: node.ID, StoragePath: folder, FileName: fileName, Bytes: data}
}

// putFile writes data as folder/fileName on node, either here or through the node's host.
func (s *storageEngine) putFile(ctx context.Context, node *model.StorageNode, folder, fileName string, data []byte, appToken string) error {
	if !s.isLocal(node) {
		return s.peers.Push(ctx, node.Host, appToken, transferFor(node, folder, fileName, data))
	}
	full := s.localPath(node, folder, fileName)
	if err := s.fs.MkdirAll(ctx, filepath.Dir(full)); err != nil {
		return err
	}
	return s.fs.WriteFile(ctx, full, data)
}

func (s *storageEngine) getFile(ctx context.Context, node *model.StorageNode, folder, fileName, appToken string) ([]byte, error) {
	if !s.isLocal(node) {
		return s.peers.Fetch(ctx, node.Host, appToken, transferFor(node, folder, fileName, nil))
	}
	return s.fs.ReadFile(ctx, s.localPath(node, folder, fileName))
}

func (s *storageEngine) removeFile(ctx context.Context, node *model.StorageNode, folder, fileName, appToken string) error {
	if !s.isLocal(node) {
		return s.peers.Delete(ctx, node.Host, appToken, transferFor(node, folder, fileName, nil))
	}
	return s.fs.Remove(ctx, s.localPath(node, folder, fileName))
}

// discardFile is the compensation path; failures are logged and otherwise ignored.
func (s *storageEngine) discardFile(ctx context.Context, node *model.StorageNode, folder, fileName, appToken string) {
	if err := s.removeFile(context.WithoutCancel(ctx), node, folder, fileName, appToken); err != nil {
		s.logger.Warn("discard_file_failed",
			"storage_node_id", node.ID, "folder", folder, "file_name", fileName, "error", err)
	}
}

func (s *storageEngine) WriteToNode(ctx context.Context, doc *model.StoredDocument, dt *model.DocumentType, storageNodeID int64, data []byte) (err error) {
	const op = "write_to_node"
	defer recoverOp(s.logger, op, &err)
	ctx, span := s.startSpan(ctx, op, attribute.Int64("storage_node_id", storageNodeID))
	defer func() { endSpan(span, err) }()

	if doc == nil || dt == nil {
		return opError(op, "document and document type are required", ErrInvalidUpload)
	}
	if doc.DocumentTypeID != dt.ID {
		return opError(op, "document has another type", ErrDocumentTypeMismatch)
	}
	if doc.FileName == "" || doc.StorageFolder == "" {
		return opError(op, "document has no storage location", ErrInvalidUpload)
	}
	node, err := s.storageNode(storageNodeID)
	if err != nil {
		return opError(op, "resolve storage node", err)
	}
	if err := s.putFile(ctx, node, doc.StorageFolder, doc.FileName, data, ""); err != nil {
		return opError(op, fmt.Sprintf("write %s to node %d", doc.FileName, node.ID), err)
	}
	return nil
}

// localTarget validates a peer request and returns the local node and physical path it names.
func (s *storageEngine) localTarget(t model.PeerTransfer) (*model.StorageNode, string, error) {
	node, err := s.storageNode(t.StorageNodeID)
	if err != nil {
		return nil, "", err
	}
	if !s.isLocal(node) {
		return nil, "", fmt.Errorf("%w: %d", ErrNodeNotLocal, node.ID)
	}
	if err := storagepath.ValidateRelative(t.StoragePath); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	if err := storagepath.ValidateFileName(t.FileName); err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidUpload, err)
	}
	return node, s.localPath(node, t.StoragePath, t.FileName), nil
}

func (s *storageEngine) ReceiveFromPeer(ctx context.Context, t model.PeerTransfer) (err error) {
	const op = "receive_from_peer"
	defer recoverOp(s.logger, op, &err)
	ctx, span := s.startSpan(ctx, op, attribute.Int64("storage_node_id", t.StorageNodeID))
	defer func() { endSpan(span, err) }()

	s.cache.CheckAndMaybeRefresh(ctx)

	if len(t.Bytes) == 0 {
		return opError(op, "empty replica", ErrInvalidUpload)
	}
	_, full, err := s.localTarget(t)
	if err != nil {
		return opError(op, "reject replica", err)
	}
	if err := s.fs.MkdirAll(ctx, filepath.Dir(full)); err != nil {
		return opError(op, "create directories", err)
	}
	if err := s.fs.WriteFile(ctx, full, t.Bytes); err != nil {
		return opError(op, "write replica", err)
	}
	s.logger.Info("replica_received", "storage_node_id", t.StorageNodeID, "storage_path", t.StoragePath, "file_name", t.FileName, "bytes", len(t.Bytes))
	return nil
}

func (s *storageEngine) ReadForPeer(ctx context.Context, t model.PeerTransfer) (data []byte, err error) {
	const op = "read_for_peer"
	defer recoverOp(s.logger, op, &err)
	ctx, span := s.startSpan(ctx, op, attribute.Int64("storage_node_id", t.StorageNodeID))
	defer func() { endSpan(span, err) }()

	_, full, err := s.localTarget(t)
	if err != nil {
		return nil, opError(op, "reject read", err)
	}
	data, err = s.fs.ReadFile(ctx, full)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, opError(op, t.FileName, ErrNotFound)
		}
		return nil, opError(op, "read file", err)
	}
	return data, nil
}

func (s *storageEngine) DeleteForPeer(ctx context.Context, t model.PeerTransfer) (err error) {
	const op = "delete_for_peer"
	defer recoverOp(s.logger, op, &err)
	ctx, span := s.startSpan(ctx, op, attribute.Int64("storage_node_id", t.StorageNodeID))
	defer func() { endSpan(span, err) }()

	_, full, err := s.localTarget(t)
	if err != nil {
		return opError(op, "reject delete", err)
	}
	if err := s.fs.Remove(ctx, full); err != nil {
		return opError(op, "remove file", err)
	}
	return nil
}

func (s *storageEngine) RetrievalPath(doc *model.StoredDocument) (p string, err error) {
	const op = "retrieval_path"
	defer recoverOp(s.logger, op, &err)

	if doc == nil {
		return "", opError(op, "document is required", ErrNotFound)
	}
	node, err := s.storageNode(doc.PrimaryStorageNodeID)
	if err != nil {
		return "", opError(op, "resolve primary node", err)
	}
	hostPath := s.local.Path
	if !s.isLocal(node) {
		hostPath = node.Host.Path
	}
	return storagepath.PhysicalPath(hostPath, node.NodePath, doc.StorageFolder, doc.FileName), nil
}

// fileExtension returns the part of name after the last dot, without the dot.
func fileExtension(name string) string {
	ext := path.Ext(name)
	return strings.TrimPrefix(ext, ".")
}
