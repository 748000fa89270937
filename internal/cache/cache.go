// Package cache holds an in-memory snapshot of key entities (applications, root objects,
// document types and storage nodes) so that request paths avoid a database round trip.
//
// The snapshot is immutable and replaced through a single atomic pointer, so readers
// never lock and never observe a half-built map. Reloads are serialized by a separate
// one-slot semaphore; a caller that cannot take it keeps serving the current snapshot.
// Freshness is decided by comparing the persisted vital info clock with the clock value
// recorded at the last load, polled at most once per TTL window.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/juju/clock"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"docstore/internal/metrics"
	"docstore/internal/model"
)

var (
	// ErrNotFound is returned when an id or token is absent or inactive.
	ErrNotFound = errors.New("key entity not found")
	// ErrNotReady is returned by lookups before the first successful load.
	ErrNotReady = errors.New("key entity cache not loaded")
)

// Source loads key entities and the change clock. Only active entities are expected.
type Source interface {
	LastUpdate(ctx context.Context) (time.Time, error)
	ActiveApplications(ctx context.Context) ([]model.Application, error)
	ActiveRootObjects(ctx context.Context) ([]model.RootObject, error)
	ActiveDocumentTypes(ctx context.Context) ([]model.DocumentType, error)
	ActiveStorageNodes(ctx context.Context) ([]model.StorageNode, error)
}

// State is the cache lifecycle state.
type State int32

const (
	StateCold State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateCold:
		return "cold"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds cache timings.
type Config struct {
	// TTL is how long a snapshot is trusted before the change clock is polled again.
	TTL time.Duration
	// Retry replaces TTL after a failed poll or reload.
	Retry time.Duration
	// RefreshTimeout bounds a refresh triggered from a request.
	RefreshTimeout time.Duration
	// ForceTimeout bounds ForceRefresh, including waiting for a running reload.
	ForceTimeout time.Duration
}

// DefaultConfig returns the production timings.
func DefaultConfig() Config {
	return Config{
		TTL:            10 * time.Second,
		Retry:          2 * time.Second,
		RefreshTimeout: 2500 * time.Millisecond,
		ForceTimeout:   30 * time.Second,
	}
}

type snapshot struct {
	applications  map[int64]*model.Application
	byToken       map[string]*model.Application
	rootObjects   map[int64]*model.RootObject
	documentTypes map[int64]*model.DocumentType
	storageNodes  map[int64]*model.StorageNode

	// clock is the vital info value observed before this snapshot was loaded.
	clock    time.Time
	loadedAt time.Time
}

// Cache is the key-entity cache. It is safe for concurrent use.
type Cache struct {
	src     Source
	clk     clock.Clock
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	snap      atomic.Pointer[snapshot]
	state     atomic.Int32
	nextCheck atomic.Int64
	reload    *semaphore.Weighted
}

// New creates a cold cache. Call ForceRefresh before serving traffic.
func New(src Source, clk clock.Clock, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Retry <= 0 {
		cfg.Retry = def.Retry
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = def.RefreshTimeout
	}
	if cfg.ForceTimeout <= 0 {
		cfg.ForceTimeout = def.ForceTimeout
	}
	return &Cache{
		src:     src,
		clk:     clk,
		cfg:     cfg,
		logger:  logger.With("component", "key_entity_cache"),
		metrics: m,
		reload:  semaphore.NewWeighted(1),
	}
}

// State returns the lifecycle state.
func (c *Cache) State() State {
	return State(c.state.Load())
}

// GetApplication returns an active application by id.
func (c *Cache) GetApplication(id int64) (*model.Application, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	return lookup(s.applications, id, "application")
}

// GetApplicationByToken returns the active application owning token.
func (c *Cache) GetApplicationByToken(token string) (*model.Application, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	app, ok := s.byToken[token]
	if !ok || token == "" {
		return nil, fmt.Errorf("application token: %w", ErrNotFound)
	}
	cp := *app
	return &cp, nil
}

// GetRootObject returns an active root object by id.
func (c *Cache) GetRootObject(id int64) (*model.RootObject, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	return lookup(s.rootObjects, id, "root object")
}

// GetDocumentType returns an active document type by id.
func (c *Cache) GetDocumentType(id int64) (*model.DocumentType, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	return lookup(s.documentTypes, id, "document type")
}

// GetStorageNode returns an active storage node, with its host, by id.
func (c *Cache) GetStorageNode(id int64) (*model.StorageNode, error) {
	s, err := c.current()
	if err != nil {
		return nil, err
	}
	return lookup(s.storageNodes, id, "storage node")
}

// CheckAndMaybeRefresh reloads the snapshot if the TTL window has passed and the change
// clock advanced. It never waits for another reload; callers that lose the race keep
// using the current snapshot. Failures are logged and retried after the shorter Retry window.
func (c *Cache) CheckAndMaybeRefresh(ctx context.Context) {
	if !c.due() {
		return
	}
	if !c.reload.TryAcquire(1) {
		return
	}
	defer c.reload.Release(1)

	// another caller may have refreshed between due() and TryAcquire
	if !c.due() {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RefreshTimeout)
	defer cancel()

	last, err := c.src.LastUpdate(ctx)
	if err != nil {
		c.fail("vital_info_poll_failed", err)
		return
	}

	if cur := c.snap.Load(); cur != nil && !last.After(cur.clock) {
		c.schedule(c.cfg.TTL)
		return
	}

	if err := c.load(ctx, last); err != nil {
		c.fail("key_entity_reload_failed", err)
		return
	}
	c.schedule(c.cfg.TTL)
}

// ForceRefresh reloads the snapshot unconditionally, waiting up to ForceTimeout for a
// running reload to finish first. It is used at startup, where an error is fatal.
func (c *Cache) ForceRefresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ForceTimeout)
	defer cancel()

	if err := c.reload.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire reload lock: %w", err)
	}
	defer c.reload.Release(1)

	c.state.CompareAndSwap(int32(StateCold), int32(StateInitializing))

	last, err := c.src.LastUpdate(ctx)
	if err == nil {
		err = c.load(ctx, last)
	}
	if err != nil {
		c.state.CompareAndSwap(int32(StateInitializing), int32(StateCold))
		c.metrics.CacheReloaded("error")
		return fmt.Errorf("load key entities: %w", err)
	}
	c.schedule(c.cfg.TTL)
	return nil
}

// Stats describes the current snapshot.
type Stats struct {
	State         State
	Applications  int
	RootObjects   int
	DocumentTypes int
	StorageNodes  int
	Clock         time.Time
	LoadedAt      time.Time
}

// Stats returns counts and clocks of the current snapshot.
func (c *Cache) Stats() Stats {
	st := Stats{State: c.State()}
	if s := c.snap.Load(); s != nil {
		st.Applications = len(s.applications)
		st.RootObjects = len(s.rootObjects)
		st.DocumentTypes = len(s.documentTypes)
		st.StorageNodes = len(s.storageNodes)
		st.Clock = s.clock
		st.LoadedAt = s.loadedAt
	}
	return st
}

func (c *Cache) current() (*snapshot, error) {
	s := c.snap.Load()
	if s == nil {
		return nil, ErrNotReady
	}
	return s, nil
}

func (c *Cache) due() bool {
	return c.clk.Now().UnixNano() >= c.nextCheck.Load()
}

func (c *Cache) schedule(d time.Duration) {
	c.nextCheck.Store(c.clk.Now().Add(d).UnixNano())
}

func (c *Cache) fail(event string, err error) {
	c.logger.Warn(event, "error", err, "retry_in", c.cfg.Retry.String(), "stale", c.snap.Load() != nil)
	c.metrics.CacheReloaded("error")
	c.schedule(c.cfg.Retry)
}

// load fetches all four entity sets concurrently and swaps in a new snapshot.
func (c *Cache) load(ctx context.Context, clockValue time.Time) error {
	var (
		apps  []model.Application
		roots []model.RootObject
		types []model.DocumentType
		nodes []model.StorageNode
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		apps, err = c.src.ActiveApplications(gctx)
		return wrap("applications", err)
	})
	g.Go(func() (err error) {
		roots, err = c.src.ActiveRootObjects(gctx)
		return wrap("root objects", err)
	})
	g.Go(func() (err error) {
		types, err = c.src.ActiveDocumentTypes(gctx)
		return wrap("document types", err)
	})
	g.Go(func() (err error) {
		nodes, err = c.src.ActiveStorageNodes(gctx)
		return wrap("storage nodes", err)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s := &snapshot{
		applications:  make(map[int64]*model.Application, len(apps)),
		byToken:       make(map[string]*model.Application, len(apps)),
		rootObjects:   make(map[int64]*model.RootObject, len(roots)),
		documentTypes: make(map[int64]*model.DocumentType, len(types)),
		storageNodes:  make(map[int64]*model.StorageNode, len(nodes)),
		clock:         clockValue,
		loadedAt:      c.clk.Now(),
	}
	for i := range apps {
		if a := &apps[i]; a.IsActive {
			s.applications[a.ID] = a
			if a.Token != "" {
				s.byToken[a.Token] = a
			}
		}
	}
	for i := range roots {
		if r := &roots[i]; r.IsActive {
			s.rootObjects[r.ID] = r
		}
	}
	for i := range types {
		if t := &types[i]; t.IsActive {
			s.documentTypes[t.ID] = t
		}
	}
	for i := range nodes {
		if n := &nodes[i]; n.IsActive {
			s.storageNodes[n.ID] = n
		}
	}

	c.snap.Store(s)
	c.state.Store(int32(StateReady))

	c.metrics.CacheReloaded("success")
	c.metrics.CacheEntities("applications", len(s.applications))
	c.metrics.CacheEntities("root_objects", len(s.rootObjects))
	c.metrics.CacheEntities("document_types", len(s.documentTypes))
	c.metrics.CacheEntities("storage_nodes", len(s.storageNodes))
	c.logger.Info("key_entity_cache_loaded",
		"applications", len(s.applications),
		"root_objects", len(s.rootObjects),
		"document_types", len(s.documentTypes),
		"storage_nodes", len(s.storageNodes),
		"vital_info", clockValue.Format(time.RFC3339Nano),
	)
	return nil
}

func lookup[T any](m map[int64]*T, id int64, kind string) (*T, error) {
	v, ok := m[id]
	if !ok {
		return nil, fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	cp := *v
	return &cp, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}
