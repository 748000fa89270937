package service

import (
	"context"
	"log/slog"

	"github.com/im7mortal/kmutex"
	"github.com/juju/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"docstore/internal/metrics"
	"docstore/internal/model"
	"docstore/internal/nodeclient"
	"docstore/internal/repository"
	"docstore/internal/storage"
)

// KeyEntities is the read side of the key-entity cache used by the engine.
type KeyEntities interface {
	GetApplicationByToken(token string) (*model.Application, error)
	GetDocumentType(id int64) (*model.DocumentType, error)
	GetStorageNode(id int64) (*model.StorageNode, error)
	CheckAndMaybeRefresh(ctx context.Context)
}

// StorageEngine stores, replaces and retrieves document bytes on storage nodes.
type StorageEngine interface {
	// StoreNew validates the upload against the caller's application, writes the bytes to the
	// primary node of the document type, persists metadata and replicates to the secondary node.
	StoreNew(ctx context.Context, upload model.Upload, appToken string) (*model.StoredDocument, error)

	// Replace overwrites the content of a Replaceable, Temporary or Editable document. The id is
	// kept and the file name changes; the prior file is deleted after metadata points at the new one.
	Replace(ctx context.Context, req model.ReplaceRequest, appToken string) (*model.StoredDocument, error)

	// Get returns a document's bytes and descriptive data to the owning application.
	Get(ctx context.Context, id int64, appToken string) (*model.RetrievedDocument, error)

	// WriteToNode writes doc's bytes to the given storage node, locally or through its host.
	WriteToNode(ctx context.Context, doc *model.StoredDocument, dt *model.DocumentType, storageNodeID int64, data []byte) error

	// ReceiveFromPeer writes a replica pushed by another host. Path and file name are used as given.
	ReceiveFromPeer(ctx context.Context, t model.PeerTransfer) error

	// ReadForPeer reads a file for another host.
	ReadForPeer(ctx context.Context, t model.PeerTransfer) ([]byte, error)

	// DeleteForPeer removes a file on behalf of another host.
	DeleteForPeer(ctx context.Context, t model.PeerTransfer) error

	// RetrievalPath is the physical path of doc on its primary node.
	RetrievalPath(doc *model.StoredDocument) (string, error)
}

// EngineDeps are the collaborators of the storage engine.
type EngineDeps struct {
	Cache       KeyEntities
	Documents   repository.DocumentRepository
	Expirations repository.ExpiringDocumentRepository
	Replication repository.ReplicationTaskRepository
	FS          storage.FileSystem
	Peers       nodeclient.Client
	LocalHost   *model.ServerHost
	Clock       clock.Clock
	Logger      *slog.Logger
	Metrics     *metrics.Metrics

	// MaxUploadBytes rejects larger uploads. Zero disables the check.
	MaxUploadBytes int64
}

type storageEngine struct {
	cache       KeyEntities
	docs        repository.DocumentRepository
	expirations repository.ExpiringDocumentRepository
	replication repository.ReplicationTaskRepository
	fs          storage.FileSystem
	peers       nodeclient.Client
	local       model.ServerHost
	clk         clock.Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics
	maxUpload   int64

	replacing *kmutex.Kmutex
	tracer    trace.Tracer
}

// NewStorageEngine constructs a StorageEngine. LocalHost must be the ServerHost of this process.
func NewStorageEngine(d EngineDeps) StorageEngine {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clk := d.Clock
	if clk == nil {
		clk = clock.WallClock
	}
	var local model.ServerHost
	if d.LocalHost != nil {
		local = *d.LocalHost
	}
	return &storageEngine{
		cache:       d.Cache,
		docs:        d.Documents,
		expirations: d.Expirations,
		replication: d.Replication,
		fs:          d.FS,
		peers:       d.Peers,
		local:       local,
		clk:         clk,
		logger:      logger.With("component", "storage_engine", "host", local.NameDNS),
		metrics:     d.Metrics,
		maxUpload:   d.MaxUploadBytes,
		replacing:   kmutex.New(),
		tracer:      otel.Tracer("docstore/service"),
	}
}

func (s *storageEngine) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "engine."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *storageEngine) isLocal(node *model.StorageNode) bool {
	return node.ServerHostID == s.local.ID
}
