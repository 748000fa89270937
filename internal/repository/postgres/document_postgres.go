package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"docstore/internal/model"
	"docstore/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, description, file_name, storage_folder, document_type_id,
		primary_storage_node_id, secondary_storage_node_id, status, is_alive,
		root_object_external_key, doc_type_external_key, size_in_kb, created_utc,
		last_accessed_utc, number_of_times_accessed`

// Create inserts a new document row and returns the stored record with its ID.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.StoredDocument) (*model.StoredDocument, error) {
	const q = `
		INSERT INTO stored_documents (description, file_name, storage_folder, document_type_id,
			primary_storage_node_id, secondary_storage_node_id, status, is_alive,
			root_object_external_key, doc_type_external_key, size_in_kb, created_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.Description,
		doc.FileName,
		doc.StorageFolder,
		doc.DocumentTypeID,
		doc.PrimaryStorageNodeID,
		nullID(doc.SecondaryStorageNodeID),
		doc.Status,
		doc.IsAlive,
		doc.RootObjectExternalKey,
		doc.DocTypeExternalKey,
		doc.SizeInKB,
		doc.CreatedUTC,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.StoredDocument, error) {
	q := `SELECT ` + documentColumns + ` FROM stored_documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// Update writes every mutable column. The ID, type and external keys never change.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.StoredDocument) error {
	const q = `
		UPDATE stored_documents
		SET description = $2, file_name = $3, storage_folder = $4, primary_storage_node_id = $5,
			secondary_storage_node_id = $6, status = $7, is_alive = $8, size_in_kb = $9
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, q,
		doc.ID,
		doc.Description,
		doc.FileName,
		doc.StorageFolder,
		doc.PrimaryStorageNodeID,
		nullID(doc.SecondaryStorageNodeID),
		doc.Status,
		doc.IsAlive,
		doc.SizeInKB,
	)
	if err != nil {
		return err
	}
	return requireOneRow(res)
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id int64) error {
	const q = `DELETE FROM stored_documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// ExistsLive checks the external key pair for a document type among non-expired, non-deleted rows.
func (r *DocumentPostgres) ExistsLive(ctx context.Context, documentTypeID int64, rootObjectKey, docTypeKey string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM stored_documents
			WHERE document_type_id = $1
			  AND root_object_external_key = $2
			  AND doc_type_external_key = $3
			  AND status NOT IN ($4, $5)
		)
	`
	var exists bool
	err := r.db.QueryRowContext(ctx, q, documentTypeID, rootObjectKey, docTypeKey,
		model.DocumentStatusExpired, model.DocumentStatusDeleted).Scan(&exists)
	return exists, err
}

// RecordAccess increments the access counter. Concurrent readers may race; counts are advisory.
func (r *DocumentPostgres) RecordAccess(ctx context.Context, id int64, at time.Time) error {
	const q = `
		UPDATE stored_documents
		SET last_accessed_utc = $2, number_of_times_accessed = number_of_times_accessed + 1
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, q, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.StoredDocument, error) {
	var (
		d          model.StoredDocument
		secondary  sql.NullInt64
		lastAccess sql.NullTime
	)
	if err := row.Scan(
		&d.ID,
		&d.Description,
		&d.FileName,
		&d.StorageFolder,
		&d.DocumentTypeID,
		&d.PrimaryStorageNodeID,
		&secondary,
		&d.Status,
		&d.IsAlive,
		&d.RootObjectExternalKey,
		&d.DocTypeExternalKey,
		&d.SizeInKB,
		&d.CreatedUTC,
		&lastAccess,
		&d.NumberOfTimesAccessed,
	); err != nil {
		return nil, err
	}
	d.SecondaryStorageNodeID = secondary.Int64
	if lastAccess.Valid {
		t := lastAccess.Time
		d.LastAccessedUTC = &t
	}
	return &d, nil
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id != 0}
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
