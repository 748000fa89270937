package postgres

import (
	"context"
	"database/sql"

	"docstore/internal/model"
	"docstore/internal/repository"
)

// ExpiringDocumentPostgres stores document expiration schedules.
type ExpiringDocumentPostgres struct {
	db *sql.DB
}

func NewExpiringDocumentPostgres(db *sql.DB) *ExpiringDocumentPostgres {
	return &ExpiringDocumentPostgres{db: db}
}

var _ repository.ExpiringDocumentRepository = (*ExpiringDocumentPostgres)(nil)

// Create inserts or moves the expiration of a document.
func (r *ExpiringDocumentPostgres) Create(ctx context.Context, exp *model.ExpiringDocument) error {
	const q = `
		INSERT INTO expiring_documents (stored_document_id, expiration_date_utc)
		VALUES ($1, $2)
		ON CONFLICT (stored_document_id) DO UPDATE SET expiration_date_utc = EXCLUDED.expiration_date_utc
	`
	_, err := r.db.ExecContext(ctx, q, exp.StoredDocumentID, exp.ExpirationDateUTC)
	return err
}

// ReplicationTaskPostgres is the replication outbox.
type ReplicationTaskPostgres struct {
	db *sql.DB
}

func NewReplicationTaskPostgres(db *sql.DB) *ReplicationTaskPostgres {
	return &ReplicationTaskPostgres{db: db}
}

var _ repository.ReplicationTaskRepository = (*ReplicationTaskPostgres)(nil)

// Enqueue records pending secondary-node work and sets task.ID.
func (r *ReplicationTaskPostgres) Enqueue(ctx context.Context, task *model.ReplicationTask) error {
	const q = `
		INSERT INTO replication_tasks (stored_document_id, from_node_id, to_node_id, file_name, reason, created_utc)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	return r.db.QueryRowContext(ctx, q,
		task.StoredDocumentID,
		task.FromNodeID,
		task.ToNodeID,
		task.FileName,
		task.Reason,
		task.CreatedUTC,
	).Scan(&task.ID)
}
