package migration

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/logging"
)

const sentinelQuery = "SELECT to_regclass($1) IS NOT NULL"

func TestEnsureMigrated_SkipsExistingSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sentinelQuery)).
		WithArgs(sentinelTable).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, EnsureMigrated(context.Background(), db, logging.Discard()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_RunsAllSteps(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sentinelQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	for _, s := range steps {
		mock.ExpectExec(regexp.QuoteMeta(s.SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, EnsureMigrated(context.Background(), db, logging.Discard()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_StepFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sentinelQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(steps[0].SQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(steps[1].SQL)).WillReturnError(errors.New("permission denied"))

	err = EnsureMigrated(context.Background(), db, logging.Discard())
	assert.ErrorContains(t, err, "migration step seed_vital_info failed: permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureMigrated_SentinelError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(sentinelQuery)).WillReturnError(errors.New("conn reset"))

	err = EnsureMigrated(context.Background(), db, logging.Discard())
	assert.ErrorContains(t, err, "check sentinel table")
}

func TestSteps_SentinelCreatedLast(t *testing.T) {
	var last int
	for i, s := range steps {
		if s.Name == "create_table_stored_documents" {
			last = i
		}
	}
	for _, s := range steps[last+1:] {
		assert.NotContains(t, s.Name, "create_table", "table %s created after the sentinel", s.Name)
	}
}
