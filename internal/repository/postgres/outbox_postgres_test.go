package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/model"
)

func TestExpiringDocumentPostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewExpiringDocumentPostgres(db)
	at := time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO expiring_documents").
		WithArgs(int64(9), at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Create(context.Background(), &model.ExpiringDocument{StoredDocumentID: 9, ExpirationDateUTC: at})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplicationTaskPostgres_Enqueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewReplicationTaskPostgres(db)
	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	task := &model.ReplicationTask{
		StoredDocumentID: 12,
		FromNodeID:       10,
		ToNodeID:         20,
		FileName:         "12.pdf",
		Reason:           "store",
		CreatedUTC:       now,
	}

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO replication_tasks").
			WithArgs(int64(12), int64(10), int64(20), "12.pdf", "store", now).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

		require.NoError(t, repo.Enqueue(context.Background(), task))
		assert.Equal(t, int64(3), task.ID)
	})

	t.Run("database error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO replication_tasks").
			WillReturnError(errors.New("deadlock detected"))

		err := repo.Enqueue(context.Background(), &model.ReplicationTask{})
		assert.ErrorContains(t, err, "deadlock detected")
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}
