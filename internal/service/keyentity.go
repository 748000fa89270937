package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"docstore/internal/model"
	"docstore/internal/repository"
	"docstore/internal/storagepath"
)

var (
	ErrInvalidEntity  = errors.New("invalid key entity")
	ErrImmutableField = errors.New("field cannot change after creation")
	ErrEntityNotFound = errors.New("key entity not found")
)

// ImmutableFieldError reports an update that tried to change a creation-only field.
type ImmutableFieldError struct {
	Entity string
	Field  string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("%s: %s cannot change after creation", e.Entity, e.Field)
}

func (e *ImmutableFieldError) Unwrap() error { return ErrImmutableField }

// CacheRefresher is implemented by the key-entity cache.
type CacheRefresher interface {
	ForceRefresh(ctx context.Context) error
}

// KeyEntityAdmin is the administration API for key entities.
type KeyEntityAdmin interface {
	CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error)
	UpdateApplication(ctx context.Context, app *model.Application) error
	CreateRootObject(ctx context.Context, ro *model.RootObject) (*model.RootObject, error)
	UpdateRootObject(ctx context.Context, ro *model.RootObject) error
	CreateDocumentType(ctx context.Context, dt *model.DocumentType) (*model.DocumentType, error)
	UpdateDocumentType(ctx context.Context, dt *model.DocumentType) error
	CreateStorageNode(ctx context.Context, n *model.StorageNode) (*model.StorageNode, error)
	UpdateStorageNode(ctx context.Context, n *model.StorageNode) error
}

var _ KeyEntityAdmin = (*KeyEntityService)(nil)

// KeyEntityService administers applications, root objects, document types and storage nodes.
type KeyEntityService struct {
	repo   repository.KeyEntityWriter
	cache  CacheRefresher
	logger *slog.Logger
}

func NewKeyEntityService(repo repository.KeyEntityWriter, cache CacheRefresher, logger *slog.Logger) *KeyEntityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyEntityService{repo: repo, cache: cache, logger: logger.With("component", "key_entity_admin")}
}

type creationOnly[T any] struct {
	name  string
	value func(*T) any
}

var documentTypeCreationOnly = []creationOnly[model.DocumentType]{
	{"StorageMode", func(d *model.DocumentType) any { return d.StorageMode }},
	{"RootObjectID", func(d *model.DocumentType) any { return d.RootObjectID }},
	{"ApplicationID", func(d *model.DocumentType) any { return d.ApplicationID }},
	{"AllowSameDTEKeys", func(d *model.DocumentType) any { return d.AllowSameDTEKeys }},
	{"StorageFolderName", func(d *model.DocumentType) any { return d.StorageFolderName }},
}

var rootObjectCreationOnly = []creationOnly[model.RootObject]{
	{"ApplicationID", func(r *model.RootObject) any { return r.ApplicationID }},
}

func checkCreationOnly[T any](entity string, fields []creationOnly[T], old, updated *T) error {
	for _, f := range fields {
		if f.value(old) != f.value(updated) {
			return &ImmutableFieldError{Entity: entity, Field: f.name}
		}
	}
	return nil
}

func (s *KeyEntityService) CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	if strings.TrimSpace(app.Name) == "" {
		return nil, fmt.Errorf("%w: application name is required", ErrInvalidEntity)
	}
	if app.Token == "" {
		app.Token = uuid.NewString()
	}
	created, err := s.repo.CreateApplication(ctx, app)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "application", created.ID)
	return created, nil
}

func (s *KeyEntityService) UpdateApplication(ctx context.Context, app *model.Application) error {
	if strings.TrimSpace(app.Name) == "" {
		return fmt.Errorf("%w: application name is required", ErrInvalidEntity)
	}
	old, err := s.repo.GetApplication(ctx, app.ID)
	if err != nil {
		return notFound(err)
	}
	if app.Token == "" {
		app.Token = old.Token
	}
	if err := s.repo.UpdateApplication(ctx, app); err != nil {
		return notFound(err)
	}
	s.changed(ctx, "application", app.ID)
	return nil
}

func (s *KeyEntityService) CreateRootObject(ctx context.Context, ro *model.RootObject) (*model.RootObject, error) {
	if err := validateRootObject(ro); err != nil {
		return nil, err
	}
	created, err := s.repo.CreateRootObject(ctx, ro)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "root_object", created.ID)
	return created, nil
}

func (s *KeyEntityService) UpdateRootObject(ctx context.Context, ro *model.RootObject) error {
	if err := validateRootObject(ro); err != nil {
		return err
	}
	old, err := s.repo.GetRootObject(ctx, ro.ID)
	if err != nil {
		return notFound(err)
	}
	if err := checkCreationOnly("root object", rootObjectCreationOnly, old, ro); err != nil {
		return err
	}
	if err := s.repo.UpdateRootObject(ctx, ro); err != nil {
		return notFound(err)
	}
	s.changed(ctx, "root_object", ro.ID)
	return nil
}

func (s *KeyEntityService) CreateDocumentType(ctx context.Context, dt *model.DocumentType) (*model.DocumentType, error) {
	if err := validateDocumentType(dt); err != nil {
		return nil, err
	}
	ro, err := s.repo.GetRootObject(ctx, dt.RootObjectID)
	if err != nil {
		return nil, notFound(err)
	}
	if ro.ApplicationID != dt.ApplicationID {
		return nil, fmt.Errorf("%w: root object %d belongs to application %d", ErrInvalidEntity, ro.ID, ro.ApplicationID)
	}
	created, err := s.repo.CreateDocumentType(ctx, dt)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "document_type", created.ID)
	return created, nil
}

func (s *KeyEntityService) UpdateDocumentType(ctx context.Context, dt *model.DocumentType) error {
	if err := validateDocumentType(dt); err != nil {
		return err
	}
	old, err := s.repo.GetDocumentType(ctx, dt.ID)
	if err != nil {
		return notFound(err)
	}
	if err := checkCreationOnly("document type", documentTypeCreationOnly, old, dt); err != nil {
		return err
	}
	if err := s.repo.UpdateDocumentType(ctx, dt); err != nil {
		return notFound(err)
	}
	s.changed(ctx, "document_type", dt.ID)
	return nil
}

func (s *KeyEntityService) CreateStorageNode(ctx context.Context, n *model.StorageNode) (*model.StorageNode, error) {
	if err := validateStorageNode(n); err != nil {
		return nil, err
	}
	created, err := s.repo.CreateStorageNode(ctx, n)
	if err != nil {
		return nil, err
	}
	s.changed(ctx, "storage_node", created.ID)
	return created, nil
}

func (s *KeyEntityService) UpdateStorageNode(ctx context.Context, n *model.StorageNode) error {
	if err := validateStorageNode(n); err != nil {
		return err
	}
	if _, err := s.repo.GetStorageNode(ctx, n.ID); err != nil {
		return notFound(err)
	}
	if err := s.repo.UpdateStorageNode(ctx, n); err != nil {
		return notFound(err)
	}
	s.changed(ctx, "storage_node", n.ID)
	return nil
}

// changed reloads the local cache after a committed mutation. The vital info clock was
// already advanced by the repository, so other processes pick the change up on their own.
func (s *KeyEntityService) changed(ctx context.Context, kind string, id int64) {
	s.logger.Info("key_entity_changed", "kind", kind, "id", id)
	if s.cache == nil {
		return
	}
	if err := s.cache.ForceRefresh(ctx); err != nil {
		s.logger.Warn("key_entity_cache_refresh_failed", "kind", kind, "id", id, "error", err)
	}
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrEntityNotFound, err)
	}
	return err
}

func validateRootObject(ro *model.RootObject) error {
	if ro.ApplicationID <= 0 {
		return fmt.Errorf("%w: root object needs an application", ErrInvalidEntity)
	}
	if strings.TrimSpace(ro.Name) == "" {
		return fmt.Errorf("%w: root object name is required", ErrInvalidEntity)
	}
	return nil
}

func validateDocumentType(dt *model.DocumentType) error {
	var errs []error
	if strings.TrimSpace(dt.Name) == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if err := storagepath.ValidateFolderName(dt.StorageFolderName); err != nil {
		errs = append(errs, err)
	}
	if !dt.StorageMode.Valid() {
		errs = append(errs, fmt.Errorf("unknown storage mode %d", int(dt.StorageMode)))
	}
	if !dt.InActiveLifeTime.Valid() {
		errs = append(errs, fmt.Errorf("unknown lifetime %d", int(dt.InActiveLifeTime)))
	}
	if dt.StorageMode == model.StorageModeTemporary && !dt.InActiveLifeTime.Bounded() {
		errs = append(errs, errors.New("temporary document types need a bounded lifetime"))
	}
	if dt.ApplicationID <= 0 {
		errs = append(errs, errors.New("application is required"))
	}
	if dt.RootObjectID <= 0 {
		errs = append(errs, errors.New("root object is required"))
	}
	if dt.ActiveStorageNode1ID <= 0 {
		errs = append(errs, errors.New("active storage node 1 is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: document type: %w", ErrInvalidEntity, errors.Join(errs...))
	}
	return nil
}

func validateStorageNode(n *model.StorageNode) error {
	if strings.TrimSpace(n.Name) == "" {
		return fmt.Errorf("%w: storage node name is required", ErrInvalidEntity)
	}
	if n.ServerHostID <= 0 {
		return fmt.Errorf("%w: storage node needs a server host", ErrInvalidEntity)
	}
	if n.NodePath == "" {
		return fmt.Errorf("%w: storage node path is required", ErrInvalidEntity)
	}
	return nil
}
