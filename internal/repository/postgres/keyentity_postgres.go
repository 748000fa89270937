package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docstore/internal/model"
	"docstore/internal/repository"
)

// KeyEntityPostgres reads and writes applications, root objects, document types,
// storage nodes and server hosts. Writes advance the vital info clock in the same transaction.
type KeyEntityPostgres struct {
	db *sql.DB
}

// NewKeyEntityPostgres creates a new KeyEntityPostgres repository.
func NewKeyEntityPostgres(db *sql.DB) *KeyEntityPostgres {
	return &KeyEntityPostgres{db: db}
}

var (
	_ repository.KeyEntityReader = (*KeyEntityPostgres)(nil)
	_ repository.KeyEntityWriter = (*KeyEntityPostgres)(nil)
)

const (
	applicationColumns  = `id, name, token, is_active`
	rootObjectColumns   = `id, application_id, name, description, is_active`
	documentTypeColumns = `id, name, description, storage_folder_name, storage_mode, root_object_id,
		application_id, allow_same_dte_keys, active_storage_node1_id, active_storage_node2_id,
		archival_storage_node1_id, archival_storage_node2_id, inactive_lifetime, is_active`
	storageNodeColumns = `id, name, node_path, server_host_id, location, speed, is_active`
	serverHostColumns  = `id, name_dns, fqdn, path, is_https`
)

// bumpVitalInfo advances the change clock strictly, even when two writes land in the same microsecond.
const bumpVitalInfo = `
	UPDATE vital_info
	SET last_update_utc = GREATEST(clock_timestamp(), last_update_utc + interval '1 microsecond')
	WHERE id = $1
`

// LastUpdate returns the change clock.
func (r *KeyEntityPostgres) LastUpdate(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := r.db.QueryRowContext(ctx, `SELECT last_update_utc FROM vital_info WHERE id = $1`, model.VitalInfoID).Scan(&t)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, fmt.Errorf("vital info row %d: %w", model.VitalInfoID, repository.ErrNotFound)
	}
	return t.UTC(), err
}

func (r *KeyEntityPostgres) ActiveApplications(ctx context.Context) ([]model.Application, error) {
	return queryAll(ctx, r.db, `SELECT `+applicationColumns+` FROM applications WHERE is_active ORDER BY id`, scanApplication)
}

func (r *KeyEntityPostgres) ActiveRootObjects(ctx context.Context) ([]model.RootObject, error) {
	return queryAll(ctx, r.db, `SELECT `+rootObjectColumns+` FROM root_objects WHERE is_active ORDER BY id`, scanRootObject)
}

func (r *KeyEntityPostgres) ActiveDocumentTypes(ctx context.Context) ([]model.DocumentType, error) {
	return queryAll(ctx, r.db, `SELECT `+documentTypeColumns+` FROM document_types WHERE is_active ORDER BY id`, scanDocumentType)
}

// ActiveStorageNodes returns active nodes joined with their server host.
func (r *KeyEntityPostgres) ActiveStorageNodes(ctx context.Context) ([]model.StorageNode, error) {
	const q = `
		SELECT n.id, n.name, n.node_path, n.server_host_id, n.location, n.speed, n.is_active,
			h.id, h.name_dns, h.fqdn, h.path, h.is_https
		FROM storage_nodes n
		JOIN server_hosts h ON h.id = n.server_host_id
		WHERE n.is_active
		ORDER BY n.id
	`
	return queryAll(ctx, r.db, q, func(s rowScanner) (model.StorageNode, error) {
		var (
			n model.StorageNode
			h model.ServerHost
		)
		err := s.Scan(&n.ID, &n.Name, &n.NodePath, &n.ServerHostID, &n.Location, &n.Speed, &n.IsActive,
			&h.ID, &h.NameDNS, &h.FQDN, &h.Path, &h.IsHTTPS)
		n.Host = &h
		return n, err
	})
}

func (r *KeyEntityPostgres) ServerHosts(ctx context.Context) ([]model.ServerHost, error) {
	return queryAll(ctx, r.db, `SELECT `+serverHostColumns+` FROM server_hosts ORDER BY id`, scanServerHost)
}

func (r *KeyEntityPostgres) GetApplication(ctx context.Context, id int64) (*model.Application, error) {
	return queryOne(ctx, r.db, `SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id, scanApplication)
}

func (r *KeyEntityPostgres) CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error) {
	const q = `INSERT INTO applications (name, token, is_active) VALUES ($1, $2, $3) RETURNING ` + applicationColumns
	var out model.Application
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = scanApplication(tx.QueryRowContext(ctx, q, app.Name, app.Token, app.IsActive))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *KeyEntityPostgres) UpdateApplication(ctx context.Context, app *model.Application) error {
	const q = `UPDATE applications SET name = $2, token = $3, is_active = $4 WHERE id = $1`
	return r.execInTx(ctx, q, app.ID, app.Name, app.Token, app.IsActive)
}

func (r *KeyEntityPostgres) GetRootObject(ctx context.Context, id int64) (*model.RootObject, error) {
	return queryOne(ctx, r.db, `SELECT `+rootObjectColumns+` FROM root_objects WHERE id = $1`, id, scanRootObject)
}

func (r *KeyEntityPostgres) CreateRootObject(ctx context.Context, ro *model.RootObject) (*model.RootObject, error) {
	const q = `INSERT INTO root_objects (application_id, name, description, is_active)
		VALUES ($1, $2, $3, $4) RETURNING ` + rootObjectColumns
	var out model.RootObject
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = scanRootObject(tx.QueryRowContext(ctx, q, ro.ApplicationID, ro.Name, ro.Description, ro.IsActive))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRootObject never writes application_id.
func (r *KeyEntityPostgres) UpdateRootObject(ctx context.Context, ro *model.RootObject) error {
	const q = `UPDATE root_objects SET name = $2, description = $3, is_active = $4 WHERE id = $1`
	return r.execInTx(ctx, q, ro.ID, ro.Name, ro.Description, ro.IsActive)
}

func (r *KeyEntityPostgres) GetDocumentType(ctx context.Context, id int64) (*model.DocumentType, error) {
	return queryOne(ctx, r.db, `SELECT `+documentTypeColumns+` FROM document_types WHERE id = $1`, id, scanDocumentType)
}

func (r *KeyEntityPostgres) CreateDocumentType(ctx context.Context, dt *model.DocumentType) (*model.DocumentType, error) {
	const q = `INSERT INTO document_types (name, description, storage_folder_name, storage_mode, root_object_id,
			application_id, allow_same_dte_keys, active_storage_node1_id, active_storage_node2_id,
			archival_storage_node1_id, archival_storage_node2_id, inactive_lifetime, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + documentTypeColumns
	var out model.DocumentType
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = scanDocumentType(tx.QueryRowContext(ctx, q,
			dt.Name, dt.Description, dt.StorageFolderName, dt.StorageMode, dt.RootObjectID,
			dt.ApplicationID, dt.AllowSameDTEKeys, dt.ActiveStorageNode1ID, nullID(dt.ActiveStorageNode2ID),
			nullID(dt.ArchivalStorageNode1ID), nullID(dt.ArchivalStorageNode2ID), dt.InActiveLifeTime, dt.IsActive,
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDocumentType writes only the columns that may change after creation.
func (r *KeyEntityPostgres) UpdateDocumentType(ctx context.Context, dt *model.DocumentType) error {
	const q = `UPDATE document_types
		SET name = $2, description = $3, active_storage_node1_id = $4, active_storage_node2_id = $5,
			archival_storage_node1_id = $6, archival_storage_node2_id = $7, inactive_lifetime = $8, is_active = $9
		WHERE id = $1`
	return r.execInTx(ctx, q, dt.ID, dt.Name, dt.Description, dt.ActiveStorageNode1ID, nullID(dt.ActiveStorageNode2ID),
		nullID(dt.ArchivalStorageNode1ID), nullID(dt.ArchivalStorageNode2ID), dt.InActiveLifeTime, dt.IsActive)
}

func (r *KeyEntityPostgres) GetStorageNode(ctx context.Context, id int64) (*model.StorageNode, error) {
	return queryOne(ctx, r.db, `SELECT `+storageNodeColumns+` FROM storage_nodes WHERE id = $1`, id, scanStorageNode)
}

func (r *KeyEntityPostgres) CreateStorageNode(ctx context.Context, n *model.StorageNode) (*model.StorageNode, error) {
	const q = `INSERT INTO storage_nodes (name, node_path, server_host_id, location, speed, is_active)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING ` + storageNodeColumns
	var out model.StorageNode
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = scanStorageNode(tx.QueryRowContext(ctx, q, n.Name, n.NodePath, n.ServerHostID, n.Location, n.Speed, n.IsActive))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *KeyEntityPostgres) UpdateStorageNode(ctx context.Context, n *model.StorageNode) error {
	const q = `UPDATE storage_nodes
		SET name = $2, node_path = $3, server_host_id = $4, location = $5, speed = $6, is_active = $7
		WHERE id = $1`
	return r.execInTx(ctx, q, n.ID, n.Name, n.NodePath, n.ServerHostID, n.Location, n.Speed, n.IsActive)
}

// inTx runs fn and the vital info bump in one transaction.
func (r *KeyEntityPostgres) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, bumpVitalInfo, model.VitalInfoID); err != nil {
		return fmt.Errorf("bump vital info: %w", err)
	}
	return tx.Commit()
}

func (r *KeyEntityPostgres) execInTx(ctx context.Context, q string, args ...any) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return err
		}
		return requireOneRow(res)
	})
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func queryAll[T any](ctx context.Context, db queryer, q string, scan func(rowScanner) (T, error)) ([]T, error) {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func queryOne[T any](ctx context.Context, db queryer, q string, id int64, scan func(rowScanner) (T, error)) (*T, error) {
	item, err := scan(db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func scanApplication(s rowScanner) (model.Application, error) {
	var a model.Application
	err := s.Scan(&a.ID, &a.Name, &a.Token, &a.IsActive)
	return a, err
}

func scanRootObject(s rowScanner) (model.RootObject, error) {
	var ro model.RootObject
	err := s.Scan(&ro.ID, &ro.ApplicationID, &ro.Name, &ro.Description, &ro.IsActive)
	return ro, err
}

func scanDocumentType(s rowScanner) (model.DocumentType, error) {
	var (
		dt                  model.DocumentType
		node2, arch1, arch2 sql.NullInt64
	)
	err := s.Scan(&dt.ID, &dt.Name, &dt.Description, &dt.StorageFolderName, &dt.StorageMode, &dt.RootObjectID,
		&dt.ApplicationID, &dt.AllowSameDTEKeys, &dt.ActiveStorageNode1ID, &node2,
		&arch1, &arch2, &dt.InActiveLifeTime, &dt.IsActive)
	dt.ActiveStorageNode2ID = node2.Int64
	dt.ArchivalStorageNode1ID = arch1.Int64
	dt.ArchivalStorageNode2ID = arch2.Int64
	return dt, err
}

func scanStorageNode(s rowScanner) (model.StorageNode, error) {
	var n model.StorageNode
	err := s.Scan(&n.ID, &n.Name, &n.NodePath, &n.ServerHostID, &n.Location, &n.Speed, &n.IsActive)
	return n, err
}

func scanServerHost(s rowScanner) (model.ServerHost, error) {
	var h model.ServerHost
	err := s.Scan(&h.ID, &h.NameDNS, &h.FQDN, &h.Path, &h.IsHTTPS)
	return h, err
}
