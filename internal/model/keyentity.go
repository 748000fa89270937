package model

import "time"

// Application is a client system that stores documents. Token is its secret credential.
type Application struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Token    string `json:"token,omitempty"`
	IsActive bool   `json:"is_active"`
}

// RootObject is the external entity (a claim, a referral) documents belong to.
type RootObject struct {
	ID            int64  `json:"id"`
	ApplicationID int64  `json:"application_id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	IsActive      bool   `json:"is_active"`
}

// DocumentType governs storage mode, folder, lifetime and target nodes for a class of documents.
type DocumentType struct {
	ID                     int64            `json:"id"`
	Name                   string           `json:"name"`
	Description            string           `json:"description"`
	StorageFolderName      string           `json:"storage_folder_name"`
	StorageMode            StorageMode      `json:"storage_mode"`
	RootObjectID           int64            `json:"root_object_id"`
	ApplicationID          int64            `json:"application_id"`
	AllowSameDTEKeys       bool             `json:"allow_same_dte_keys"`
	ActiveStorageNode1ID   int64            `json:"active_storage_node1_id"`
	ActiveStorageNode2ID   int64            `json:"active_storage_node2_id,omitempty"`
	ArchivalStorageNode1ID int64            `json:"archival_storage_node1_id,omitempty"`
	ArchivalStorageNode2ID int64            `json:"archival_storage_node2_id,omitempty"`
	InActiveLifeTime       DocumentLifetime `json:"inactive_lifetime"`
	IsActive               bool             `json:"is_active"`
}

// StorageNode is a path-rooted location on a ServerHost.
// Host is populated when nodes are loaded for the key-entity cache.
type StorageNode struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	NodePath     string      `json:"node_path"`
	ServerHostID int64       `json:"server_host_id"`
	Location     string      `json:"location"`
	Speed        string      `json:"speed"`
	IsActive     bool        `json:"is_active"`
	Host         *ServerHost `json:"host,omitempty"`
}

// ServerHost is a machine running this service.
type ServerHost struct {
	ID      int64  `json:"id"`
	NameDNS string `json:"name_dns"`
	FQDN    string `json:"fqdn"`
	Path    string `json:"path"`
	IsHTTPS bool   `json:"is_https"`
}

// VitalInfoID is the key of the singleton vital info row.
const VitalInfoID = 1

// VitalInfo holds the cluster-wide change clock for key entities.
type VitalInfo struct {
	ID            int       `json:"id"`
	LastUpdateUTC time.Time `json:"last_update_utc"`
}
