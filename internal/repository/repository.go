package repository

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres) and contain no business logic.

import (
	"context"
	"errors"
	"time"

	"docstore/internal/model"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("record not found")

// DocumentRepository persists StoredDocument metadata.
type DocumentRepository interface {
	// Create inserts a document and returns it with its allocated ID.
	Create(ctx context.Context, doc *model.StoredDocument) (*model.StoredDocument, error)

	// FindByID returns a document by ID or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*model.StoredDocument, error)

	// Update writes all mutable columns of doc.
	Update(ctx context.Context, doc *model.StoredDocument) error

	// Delete removes a document row. It returns nil if the row did not exist.
	Delete(ctx context.Context, id int64) error

	// ExistsLive reports whether a live document of the given type already carries both external keys.
	ExistsLive(ctx context.Context, documentTypeID int64, rootObjectKey, docTypeKey string) (bool, error)

	// RecordAccess bumps the access counter and last-accessed time.
	RecordAccess(ctx context.Context, id int64, at time.Time) error
}

// ExpiringDocumentRepository persists expiration schedules.
type ExpiringDocumentRepository interface {
	Create(ctx context.Context, exp *model.ExpiringDocument) error
}

// ReplicationTaskRepository is the outbox for pending secondary-node work.
type ReplicationTaskRepository interface {
	Enqueue(ctx context.Context, task *model.ReplicationTask) error
}

// KeyEntityReader loads the reference data held by the key-entity cache.
type KeyEntityReader interface {
	// LastUpdate returns VitalInfo.LastUpdateUTC.
	LastUpdate(ctx context.Context) (time.Time, error)
	ActiveApplications(ctx context.Context) ([]model.Application, error)
	ActiveRootObjects(ctx context.Context) ([]model.RootObject, error)
	ActiveDocumentTypes(ctx context.Context) ([]model.DocumentType, error)
	// ActiveStorageNodes returns active nodes with Host populated.
	ActiveStorageNodes(ctx context.Context) ([]model.StorageNode, error)
	ServerHosts(ctx context.Context) ([]model.ServerHost, error)
}

// KeyEntityWriter mutates reference data. Every call advances VitalInfo.LastUpdateUTC
// in the same transaction as the change.
type KeyEntityWriter interface {
	GetApplication(ctx context.Context, id int64) (*model.Application, error)
	CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error)
	UpdateApplication(ctx context.Context, app *model.Application) error

	GetRootObject(ctx context.Context, id int64) (*model.RootObject, error)
	CreateRootObject(ctx context.Context, ro *model.RootObject) (*model.RootObject, error)
	UpdateRootObject(ctx context.Context, ro *model.RootObject) error

	GetDocumentType(ctx context.Context, id int64) (*model.DocumentType, error)
	CreateDocumentType(ctx context.Context, dt *model.DocumentType) (*model.DocumentType, error)
	UpdateDocumentType(ctx context.Context, dt *model.DocumentType) error

	GetStorageNode(ctx context.Context, id int64) (*model.StorageNode, error)
	CreateStorageNode(ctx context.Context, n *model.StorageNode) (*model.StorageNode, error)
	UpdateStorageNode(ctx context.Context, n *model.StorageNode) error
}
