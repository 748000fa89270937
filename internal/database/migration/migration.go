package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

// sentinelTable is created last; its presence means the schema is complete.
const sentinelTable = "public.stored_documents"

var steps = []migrationStep{
	{
		Name: "create_table_vital_info",
		SQL: `CREATE TABLE IF NOT EXISTS vital_info (
  id              INTEGER     PRIMARY KEY,
  last_update_utc TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "seed_vital_info",
		SQL:  `INSERT INTO vital_info (id, last_update_utc) VALUES (1, now()) ON CONFLICT (id) DO NOTHING;`,
	},
	{
		Name: "create_table_applications",
		SQL: `CREATE TABLE IF NOT EXISTS applications (
  id        BIGSERIAL PRIMARY KEY,
  name      TEXT      NOT NULL,
  token     TEXT      NOT NULL UNIQUE,
  is_active BOOLEAN   NOT NULL DEFAULT true
);`,
	},
	{
		Name: "create_table_root_objects",
		SQL: `CREATE TABLE IF NOT EXISTS root_objects (
  id             BIGSERIAL PRIMARY KEY,
  application_id BIGINT    NOT NULL REFERENCES applications (id),
  name           TEXT      NOT NULL,
  description    TEXT      NOT NULL DEFAULT '',
  is_active      BOOLEAN   NOT NULL DEFAULT true
);`,
	},
	{
		Name: "create_table_server_hosts",
		SQL: `CREATE TABLE IF NOT EXISTS server_hosts (
  id       BIGSERIAL PRIMARY KEY,
  name_dns TEXT      NOT NULL,
  fqdn     TEXT      NOT NULL DEFAULT '',
  path     TEXT      NOT NULL DEFAULT '',
  is_https BOOLEAN   NOT NULL DEFAULT false
);`,
	},
	{
		Name: "create_table_storage_nodes",
		SQL: `CREATE TABLE IF NOT EXISTS storage_nodes (
  id             BIGSERIAL PRIMARY KEY,
  name           TEXT      NOT NULL,
  node_path      TEXT      NOT NULL,
  server_host_id BIGINT    NOT NULL REFERENCES server_hosts (id),
  location       TEXT      NOT NULL DEFAULT '',
  speed          TEXT      NOT NULL DEFAULT '',
  is_active      BOOLEAN   NOT NULL DEFAULT true
);`,
	},
	{
		Name: "create_table_document_types",
		SQL: `CREATE TABLE IF NOT EXISTS document_types (
  id                        BIGSERIAL PRIMARY KEY,
  name                      TEXT      NOT NULL,
  description               TEXT      NOT NULL DEFAULT '',
  storage_folder_name       TEXT      NOT NULL,
  storage_mode              SMALLINT  NOT NULL CHECK (storage_mode BETWEEN 1 AND 5),
  root_object_id            BIGINT    NOT NULL REFERENCES root_objects (id),
  application_id            BIGINT    NOT NULL REFERENCES applications (id),
  allow_same_dte_keys       BOOLEAN   NOT NULL DEFAULT false,
  active_storage_node1_id   BIGINT    NOT NULL REFERENCES storage_nodes (id),
  active_storage_node2_id   BIGINT    REFERENCES storage_nodes (id),
  archival_storage_node1_id BIGINT    REFERENCES storage_nodes (id),
  archival_storage_node2_id BIGINT    REFERENCES storage_nodes (id),
  inactive_lifetime         SMALLINT  NOT NULL DEFAULT 0,
  is_active                 BOOLEAN   NOT NULL DEFAULT true
);`,
	},
	{
		Name: "create_table_expiring_documents",
		SQL: `CREATE TABLE IF NOT EXISTS expiring_documents (
  stored_document_id  BIGINT      PRIMARY KEY,
  expiration_date_utc TIMESTAMPTZ NOT NULL
);`,
	},
	{
		Name: "create_table_replication_tasks",
		SQL: `CREATE TABLE IF NOT EXISTS replication_tasks (
  id                 BIGSERIAL   PRIMARY KEY,
  stored_document_id BIGINT      NOT NULL,
  from_node_id       BIGINT      NOT NULL,
  to_node_id         BIGINT      NOT NULL,
  file_name          TEXT        NOT NULL,
  reason             TEXT        NOT NULL,
  created_utc        TIMESTAMPTZ NOT NULL
);`,
	},
	{
		Name: "create_table_stored_documents",
		SQL: `CREATE TABLE IF NOT EXISTS stored_documents (
  id                        BIGSERIAL   PRIMARY KEY,
  description               TEXT        NOT NULL DEFAULT '',
  file_name                 TEXT        NOT NULL DEFAULT '',
  storage_folder            TEXT        NOT NULL,
  document_type_id          BIGINT      NOT NULL REFERENCES document_types (id),
  primary_storage_node_id   BIGINT      NOT NULL REFERENCES storage_nodes (id),
  secondary_storage_node_id BIGINT      REFERENCES storage_nodes (id),
  status                    SMALLINT    NOT NULL,
  is_alive                  BOOLEAN     NOT NULL DEFAULT true,
  root_object_external_key  TEXT        NOT NULL DEFAULT '',
  doc_type_external_key     TEXT        NOT NULL DEFAULT '',
  size_in_kb                BIGINT      NOT NULL CHECK (size_in_kb >= 0),
  created_utc               TIMESTAMPTZ NOT NULL,
  last_accessed_utc         TIMESTAMPTZ,
  number_of_times_accessed  BIGINT      NOT NULL DEFAULT 0
);`,
	},
	{
		Name: "create_index_stored_documents_keys",
		SQL: `CREATE INDEX IF NOT EXISTS idx_stored_documents_keys
  ON stored_documents (document_type_id, root_object_external_key, doc_type_external_key);`,
	},
	{
		Name: "create_index_replication_tasks_created",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_replication_tasks_created ON replication_tasks (created_utc);`,
	},
}

// EnsureMigrated creates the schema when the sentinel table is missing. Every step is idempotent,
// so a run interrupted halfway is completed by the next start.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	start := time.Now()
	logger = logger.With("component", "database")

	var exists bool
	if err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists); err != nil {
		logger.Error("db_migration_failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("check sentinel table: %w", err)
	}
	if exists {
		logger.Info("db_migration_skip", "msg", "schema already exists", "duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	logger.Info("db_migration_start", "steps", len(steps))
	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			logger.Error("db_migration_failed",
				"migration_step", step.Name,
				"error", err,
				"step_duration_ms", time.Since(stepStart).Milliseconds(),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		logger.Debug("db_migration_step", "migration_step", step.Name, "step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	logger.Info("db_migration_success", "duration_ms", time.Since(start).Milliseconds())
	return nil
}
