package model

import (
	"strconv"
	"time"
)

// DocumentStatus tracks where a stored document is in its lifecycle.
type DocumentStatus int

const (
	DocumentStatusInitialSave DocumentStatus = iota + 1
	DocumentStatusReplaced
	DocumentStatusArchived
	DocumentStatusExpired
	DocumentStatusDeleted
)

// Live reports whether a document in this status still counts against
// duplicate external key checks.
func (s DocumentStatus) Live() bool {
	return s != DocumentStatusExpired && s != DocumentStatusDeleted
}

func (s DocumentStatus) String() string {
	switch s {
	case DocumentStatusInitialSave:
		return "initial_save"
	case DocumentStatusReplaced:
		return "replaced"
	case DocumentStatusArchived:
		return "archived"
	case DocumentStatusExpired:
		return "expired"
	case DocumentStatusDeleted:
		return "deleted"
	default:
		return "status_" + strconv.Itoa(int(s))
	}
}

// StoredDocument is the metadata row for one physical file.
// StorageFolder is fixed for the document's lifetime; FileName changes on replacement.
type StoredDocument struct {
	ID                     int64          `json:"id"`
	Description            string         `json:"description"`
	FileName               string         `json:"file_name"`
	StorageFolder          string         `json:"storage_folder"`
	DocumentTypeID         int64          `json:"document_type_id"`
	PrimaryStorageNodeID   int64          `json:"primary_storage_node_id"`
	SecondaryStorageNodeID int64          `json:"secondary_storage_node_id,omitempty"`
	Status                 DocumentStatus `json:"status"`
	IsAlive                bool           `json:"is_alive"`
	RootObjectExternalKey  string         `json:"root_object_external_key"`
	DocTypeExternalKey     string         `json:"doc_type_external_key"`
	SizeInKB               int64          `json:"size_in_kb"`
	CreatedUTC             time.Time      `json:"created_utc"`
	LastAccessedUTC        *time.Time     `json:"last_accessed_utc,omitempty"`
	NumberOfTimesAccessed  int64          `json:"number_of_times_accessed"`
}

// ExpiringDocument marks a stored document for removal once ExpirationDateUTC passes.
type ExpiringDocument struct {
	StoredDocumentID  int64     `json:"stored_document_id"`
	ExpirationDateUTC time.Time `json:"expiration_date_utc"`
}

// ReplicationTask is an outbox row describing secondary-node work that still has to happen.
type ReplicationTask struct {
	ID               int64     `json:"id"`
	StoredDocumentID int64     `json:"stored_document_id"`
	FromNodeID       int64     `json:"from_node_id"`
	ToNodeID         int64     `json:"to_node_id"`
	FileName         string    `json:"file_name"`
	Reason           string    `json:"reason"`
	CreatedUTC       time.Time `json:"created_utc"`
}

// Upload carries a new document from a client application.
type Upload struct {
	DocumentTypeID        int64
	Description           string
	FileExtension         string
	RootObjectExternalKey string
	DocTypeExternalKey    string
	Bytes                 []byte
}

// ReplaceRequest carries new content for an existing document.
// An empty FileExtension keeps the current extension; an empty Description keeps the current one.
type ReplaceRequest struct {
	StoredDocumentID int64
	Description      string
	FileExtension    string
	Bytes            []byte
}

// PeerTransfer is a replica pushed from another host. StoragePath and FileName
// were resolved by the origin host and are used as is.
type PeerTransfer struct {
	StorageNodeID int64  `json:"storageNodeId"`
	StoragePath   string `json:"storagePath"`
	FileName      string `json:"fileName"`
	Bytes         []byte `json:"-"`
}

// RetrievedDocument is what a client gets back from a read.
type RetrievedDocument struct {
	ID          int64
	Description string
	Extension   string
	SizeInKB    int64
	MediaType   string
	Bytes       []byte
}
