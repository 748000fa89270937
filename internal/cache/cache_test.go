package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docstore/internal/logging"
	"docstore/internal/model"
)

type fakeSource struct {
	mu    sync.Mutex
	clock time.Time
	apps  []model.Application
	roots []model.RootObject
	types []model.DocumentType
	nodes []model.StorageNode

	pollErr error
	loadErr error

	polls atomic.Int32
	loads atomic.Int32
}

func newFakeSource(clock time.Time) *fakeSource {
	host := &model.ServerHost{ID: 1, NameDNS: "node-a", FQDN: "node-a.example.com", Path: "/srv"}
	return &fakeSource{
		clock: clock,
		apps: []model.Application{
			{ID: 1, Name: "Billing", Token: "tok-billing", IsActive: true},
			{ID: 2, Name: "Retired", Token: "tok-retired", IsActive: false},
		},
		roots: []model.RootObject{{ID: 10, ApplicationID: 1, Name: "Invoice", IsActive: true}},
		types: []model.DocumentType{
			{ID: 100, Name: "Report", StorageFolderName: "RPT", StorageMode: model.StorageModeWriteOnceReadMany, RootObjectID: 10, ApplicationID: 1, ActiveStorageNode1ID: 1000, IsActive: true},
		},
		nodes: []model.StorageNode{{ID: 1000, Name: "primary", NodePath: "docs", ServerHostID: 1, IsActive: true, Host: host}},
	}
}

func (f *fakeSource) LastUpdate(context.Context) (time.Time, error) {
	f.polls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return time.Time{}, f.pollErr
	}
	return f.clock, nil
}

func (f *fakeSource) ActiveApplications(context.Context) ([]model.Application, error) {
	f.loads.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]model.Application(nil), f.apps...), nil
}

func (f *fakeSource) ActiveRootObjects(context.Context) ([]model.RootObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.RootObject(nil), f.roots...), nil
}

func (f *fakeSource) ActiveDocumentTypes(context.Context) ([]model.DocumentType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.DocumentType(nil), f.types...), nil
}

func (f *fakeSource) ActiveStorageNodes(context.Context) ([]model.StorageNode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.StorageNode(nil), f.nodes...), nil
}

func (f *fakeSource) addDocumentType(dt model.DocumentType, bump time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, dt)
	f.clock = f.clock.Add(bump)
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestCache(t *testing.T) (*Cache, *fakeSource, *testclock.Clock) {
	t.Helper()
	src := newFakeSource(epoch)
	clk := testclock.NewClock(epoch)
	c := New(src, clk, Config{TTL: 10 * time.Second, Retry: 2 * time.Second}, logging.Discard(), nil)
	return c, src, clk
}

func TestCache_ColdLookups(t *testing.T) {
	c, _, _ := newTestCache(t)

	assert.Equal(t, StateCold, c.State())
	_, err := c.GetDocumentType(100)
	assert.ErrorIs(t, err, ErrNotReady)
	_, err = c.GetApplicationByToken("tok-billing")
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCache_ForceRefreshLoadsActiveEntities(t *testing.T) {
	c, _, _ := newTestCache(t)
	require.NoError(t, c.ForceRefresh(context.Background()))

	assert.Equal(t, StateReady, c.State())

	app, err := c.GetApplicationByToken("tok-billing")
	require.NoError(t, err)
	assert.Equal(t, int64(1), app.ID)

	_, err = c.GetApplication(2)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.GetApplicationByToken("tok-retired")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.GetApplicationByToken("")
	assert.ErrorIs(t, err, ErrNotFound)

	root, err := c.GetRootObject(10)
	require.NoError(t, err)
	assert.Equal(t, "Invoice", root.Name)

	node, err := c.GetStorageNode(1000)
	require.NoError(t, err)
	require.NotNil(t, node.Host)
	assert.Equal(t, "node-a.example.com", node.Host.FQDN)

	_, err = c.GetDocumentType(999)
	assert.ErrorIs(t, err, ErrNotFound)

	st := c.Stats()
	assert.Equal(t, 1, st.Applications)
	assert.Equal(t, 1, st.DocumentTypes)
	assert.Equal(t, epoch, st.Clock)
}

func TestCache_ReadsBetweenRefreshesAreIdentical(t *testing.T) {
	c, src, clk := newTestCache(t)
	require.NoError(t, c.ForceRefresh(context.Background()))

	first, err := c.GetDocumentType(100)
	require.NoError(t, err)

	clk.Advance(5 * time.Second)
	c.CheckAndMaybeRefresh(context.Background())

	second, err := c.GetDocumentType(100)
	require.NoError(t, err)
	assert.Equal(t, *first, *second)
	assert.Equal(t, int32(1), src.polls.Load(), "no poll inside the TTL window")
}

func TestCache_ReturnsCopies(t *testing.T) {
	c, _, _ := newTestCache(t)
	require.NoError(t, c.ForceRefresh(context.Background()))

	dt, err := c.GetDocumentType(100)
	require.NoError(t, err)
	dt.StorageFolderName = "XXX"

	again, err := c.GetDocumentType(100)
	require.NoError(t, err)
	assert.Equal(t, "RPT", again.StorageFolderName)
}

func TestCache_UnchangedClockSkipsReload(t *testing.T) {
	c, src, clk := newTestCache(t)
	require.NoError(t, c.ForceRefresh(context.Background()))
	loads := src.loads.Load()

	clk.Advance(11 * time.Second)
	c.CheckAndMaybeRefresh(context.Background())

	assert.Equal(t, int32(2), src.polls.Load())
	assert.Equal(t, loads, src.loads.Load())
}

func TestCache_ReloadsAfterClockAdvances(t *testing.T) {
	c, src, clk := newTestCache(t)
	require.NoError(t, c.ForceRefresh(context.Background()))
	before := c.Stats()

	src.addDocumentType(model.DocumentType{
		ID: 101, Name: "Scan", StorageFolderName: "SCN", StorageMode: model.StorageModeReplaceable,
		RootObjectID: 10, ApplicationID: 1, ActiveStorageNode1ID: 1000, IsActive: true,
	}, time.Millisecond)

	// within the TTL the new type is not visible yet
	c.CheckAndMaybeRefresh(context.Background())
	_, err := c.GetDocumentType(101)
	assert.ErrorIs(t, err, ErrNotFound)

	clk.Advance(10 * time.Second)
	c.CheckAndMaybeRefresh(context.Background())

	after := c.Stats()
	assert.Equal(t, before.DocumentTypes+1, after.DocumentTypes)
	assert.True(t, after.Clock.After(before.Clock))

	dt, err := c.GetDocumentType(101)
	require.NoError(t, err)
	assert.Equal(t, "SCN", dt.StorageFolderName)
}

func TestCache_FailedReloadKeepsStaleSnapshot(t *testing.T) {
	c, src, clk := newTestCache(t)
	require.NoError(t, c.ForceRefresh(context.Background()))

	src.set(func(f *fakeSource) {
		f.clock = f.clock.Add(time.Second)
		f.loadErr = errors.New("db down")
	})

	clk.Advance(10 * time.Second)
	c.CheckAndMaybeRefresh(context.Background())

	dt, err := c.GetDocumentType(100)
	require.NoError(t, err, "stale snapshot still served")
	assert.Equal(t, "RPT", dt.StorageFolderName)
	assert.Equal(t, epoch, c.Stats().Clock)

	polls := src.polls.Load()

	// retry window is shorter than the TTL
	clk.Advance(1 * time.Second)
	c.CheckAndMaybeRefresh(context.Background())
	assert.Equal(t, polls, src.polls.Load())

	src.set(func(f *fakeSource) { f.loadErr = nil })
	clk.Advance(1 * time.Second)
	c.CheckAndMaybeRefresh(context.Background())
	assert.Equal(t, polls+1, src.polls.Load())
	assert.Equal(t, epoch.Add(time.Second), c.Stats().Clock)
}

func TestCache_FailedPollRetries(t *testing.T) {
	c, src, clk := newTestCache(t)
	require.NoError(t, c.ForceRefresh(context.Background()))

	src.set(func(f *fakeSource) { f.pollErr = errors.New("timeout") })
	clk.Advance(10 * time.Second)
	c.CheckAndMaybeRefresh(context.Background())
	assert.Equal(t, StateReady, c.State())

	src.set(func(f *fakeSource) { f.pollErr = nil })
	clk.Advance(2 * time.Second)
	c.CheckAndMaybeRefresh(context.Background())
	assert.Equal(t, int32(3), src.polls.Load())
}

func TestCache_ConcurrentRefreshDoesNotBlock(t *testing.T) {
	c, src, clk := newTestCache(t)
	require.NoError(t, c.ForceRefresh(context.Background()))

	require.True(t, c.reload.TryAcquire(1))
	defer c.reload.Release(1)

	clk.Advance(time.Minute)

	done := make(chan struct{})
	go func() {
		c.CheckAndMaybeRefresh(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("CheckAndMaybeRefresh waited for the reload lock")
	}
	assert.Equal(t, int32(1), src.polls.Load())

	_, err := c.GetDocumentType(100)
	assert.NoError(t, err)
}

func TestCache_ForceRefreshTimesOutWaitingForLock(t *testing.T) {
	src := newFakeSource(epoch)
	c := New(src, testclock.NewClock(epoch), Config{ForceTimeout: 20 * time.Millisecond}, logging.Discard(), nil)

	require.True(t, c.reload.TryAcquire(1))
	defer c.reload.Release(1)

	err := c.ForceRefresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCache_InitialLoadFailure(t *testing.T) {
	c, src, _ := newTestCache(t)
	src.set(func(f *fakeSource) { f.loadErr = errors.New("relation does not exist") })

	err := c.ForceRefresh(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load applications")
	assert.Equal(t, StateCold, c.State())

	_, err = c.GetStorageNode(1000)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestCache_ParallelReadersDuringReload(t *testing.T) {
	c, src, clk := newTestCache(t)
	require.NoError(t, c.ForceRefresh(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				dt, err := c.GetDocumentType(100)
				if assert.NoError(t, err) {
					assert.Equal(t, "RPT", dt.StorageFolderName)
				}
				c.CheckAndMaybeRefresh(context.Background())
			}
		}()
	}

	for i := 0; i < 5; i++ {
		src.set(func(f *fakeSource) { f.clock = f.clock.Add(time.Millisecond) })
		clk.Advance(10 * time.Second)
	}
	wg.Wait()

	assert.Equal(t, StateReady, c.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "cold", StateCold.String())
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "State(9)", State(9).String())
}
