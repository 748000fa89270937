package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/model"
	"docstore/internal/repository"
)

var documentRowColumns = []string{
	"id", "description", "file_name", "storage_folder", "document_type_id",
	"primary_storage_node_id", "secondary_storage_node_id", "status", "is_alive",
	"root_object_external_key", "doc_type_external_key", "size_in_kb", "created_utc",
	"last_accessed_utc", "number_of_times_accessed",
}

func TestDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := &model.StoredDocument{
		Description:           "claim form",
		StorageFolder:         "W/RPT/2024/03",
		DocumentTypeID:        3,
		PrimaryStorageNodeID:  1,
		Status:                model.DocumentStatusInitialSave,
		IsAlive:               true,
		RootObjectExternalKey: "CLM-1",
		DocTypeExternalKey:    "FORM-A",
		SizeInKB:              2,
		CreatedUTC:            now,
	}

	rows := sqlmock.NewRows(documentRowColumns).
		AddRow(41, doc.Description, "", doc.StorageFolder, 3, 1, nil, 1, true, "CLM-1", "FORM-A", 2, now, nil, 0)

	mock.ExpectQuery("INSERT INTO stored_documents").
		WithArgs(doc.Description, "", doc.StorageFolder, int64(3), int64(1), sql.NullInt64{},
			model.DocumentStatusInitialSave, true, "CLM-1", "FORM-A", int64(2), now).
		WillReturnRows(rows)

	got, err := repo.Create(ctx, doc)

	require.NoError(t, err)
	assert.Equal(t, int64(41), got.ID)
	assert.Equal(t, model.DocumentStatusInitialSave, got.Status)
	assert.Zero(t, got.SecondaryStorageNodeID)
	assert.Nil(t, got.LastAccessedUTC)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		accessed := time.Now().UTC()
		rows := sqlmock.NewRows(documentRowColumns).
			AddRow(7, "d", "7.pdf", "W/RPT/2024/03", 3, 1, 2, 1, true, "a", "b", 10, time.Now(), accessed, 4)

		mock.ExpectQuery("SELECT (.+) FROM stored_documents WHERE id = ?").
			WithArgs(int64(7)).
			WillReturnRows(rows)

		doc, err := repo.FindByID(ctx, 7)

		require.NoError(t, err)
		assert.Equal(t, "7.pdf", doc.FileName)
		assert.Equal(t, int64(2), doc.SecondaryStorageNodeID)
		require.NotNil(t, doc.LastAccessedUTC)
		assert.Equal(t, int64(4), doc.NumberOfTimesAccessed)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM stored_documents WHERE id = ?").
			WithArgs(int64(8)).
			WillReturnError(sql.ErrNoRows)

		doc, err := repo.FindByID(ctx, 8)

		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, doc)
	})
}

func TestDocumentPostgres_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	doc := &model.StoredDocument{ID: 7, FileName: "7-abc.pdf", StorageFolder: "R/X/2024/03", PrimaryStorageNodeID: 1,
		SecondaryStorageNodeID: 2, Status: model.DocumentStatusReplaced, IsAlive: true, SizeInKB: 3}

	t.Run("updated", func(t *testing.T) {
		mock.ExpectExec("UPDATE stored_documents").
			WithArgs(int64(7), "", "7-abc.pdf", "R/X/2024/03", int64(1), sql.NullInt64{Int64: 2, Valid: true},
				model.DocumentStatusReplaced, true, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(ctx, doc))
	})

	t.Run("missing row", func(t *testing.T) {
		mock.ExpectExec("UPDATE stored_documents").
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Update(ctx, doc), repository.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ExistsLive(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(3), "CLM-1", "FORM-A", model.DocumentStatusExpired, model.DocumentStatusDeleted).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsLive(context.Background(), 3, "CLM-1", "FORM-A")

	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_RecordAccessAndDelete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDocumentPostgres(db)
	ctx := context.Background()
	at := time.Now().UTC()

	mock.ExpectExec("UPDATE stored_documents SET last_accessed_utc").
		WithArgs(int64(7), at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM stored_documents WHERE id = ?").
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.RecordAccess(ctx, 7, at))
	assert.NoError(t, repo.Delete(ctx, 7))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepositories(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	exp := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO expiring_documents").
		WithArgs(int64(7), exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("INSERT INTO replication_tasks").
		WithArgs(int64(7), int64(1), int64(2), "7.pdf", "peer down", exp).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(99))

	require.NoError(t, NewExpiringDocumentPostgres(db).Create(ctx, &model.ExpiringDocument{StoredDocumentID: 7, ExpirationDateUTC: exp}))

	task := &model.ReplicationTask{StoredDocumentID: 7, FromNodeID: 1, ToNodeID: 2, FileName: "7.pdf", Reason: "peer down", CreatedUTC: exp}
	require.NoError(t, NewReplicationTaskPostgres(db).Enqueue(ctx, task))
	assert.Equal(t, int64(99), task.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
