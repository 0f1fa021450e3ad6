// ABOUTME: Tests for the recording coordinator and host
// ABOUTME: Uses a channel-fed fake source against a real temporary store

package recorder

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/mcmeister/gpstrack/internal/storage"
	"github.com/mcmeister/gpstrack/internal/tilecache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	last  models.Fix
	has   bool
	fixes chan models.Fix
}

func newFakeSource() *fakeSource {
	return &fakeSource{fixes: make(chan models.Fix)}
}

func (f *fakeSource) Start(ctx context.Context) error { return nil }
func (f *fakeSource) Fixes() <-chan models.Fix        { return f.fixes }
func (f *fakeSource) Close() error                    { return nil }

func (f *fakeSource) Last() (models.Fix, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.has
}

func (f *fakeSource) setLast(lat, lon float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = models.Fix{Latitude: lat, Longitude: lon, Time: time.Now()}
	f.has = true
}

// emit blocks until the host picks the fix up.
func (f *fakeSource) emit(lat, lon float64) {
	f.fixes <- models.Fix{Latitude: lat, Longitude: lon, Time: time.Now()}
}

type fakePrefetcher struct {
	calls atomic.Int64
}

func (p *fakePrefetcher) EnsureArea(ctx context.Context, lat, lon float64, zoom, radius int) tilecache.AreaResult {
	p.calls.Add(1)
	return tilecache.AreaResult{}
}

type fakeNet struct{ online bool }

func (n *fakeNet) Online() bool { return n.online }

type fakeSnapshotter struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (s *fakeSnapshotter) Generate(ctx context.Context, route *models.Route, points []*models.RoutePoint, bearing float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return "", errors.New("render failed")
	}
	return "/tmp/route.png", nil
}

func (s *fakeSnapshotter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testStore(t *testing.T) *storage.SQLiteDB {
	t.Helper()
	db, err := storage.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testCoordinator(t *testing.T, db *storage.SQLiteDB, src *fakeSource, opts Options) *Coordinator {
	t.Helper()
	c, err := New(context.Background(), db, src, opts)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func waitForPoints(t *testing.T, db *storage.SQLiteDB, routeID int64, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		n, err := db.CountPoints(routeID)
		return err == nil && n == want
	}, 2*time.Second, 5*time.Millisecond, "route %d never reached %d points", routeID, want)
}

func TestStartRecording_NoFix(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	c := testCoordinator(t, db, src, Options{})

	_, err := c.StartRecording(context.Background())
	require.ErrorIs(t, err, ErrNoFix)
	assert.Equal(t, StateIdle, c.State())

	// No orphaned route row may be left behind.
	routes, err := db.AllRoutes()
	require.NoError(t, err)
	assert.Empty(t, routes)
}

func TestStartRecording(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(59.3293, 18.0686)
	c := testCoordinator(t, db, src, Options{Zoom: 11, Width: 512, Height: 512})

	route, err := c.StartRecording(context.Background())
	require.NoError(t, err)
	require.NotNil(t, route)

	assert.Equal(t, StateRecording, c.State())
	assert.Equal(t, route.ID, c.CurrentRouteID())

	got, err := db.GetRoute(route.ID)
	require.NoError(t, err)
	assert.Nil(t, got.EndTime)
	assert.InDelta(t, 59.3293, got.CenterLat, 1e-9)
	assert.Equal(t, 11, got.Zoom)
}

func TestStartRecording_AlreadyActive(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(1, 2)
	c := testCoordinator(t, db, src, Options{})

	_, err := c.StartRecording(context.Background())
	require.NoError(t, err)

	_, err = c.StartRecording(context.Background())
	require.ErrorIs(t, err, ErrAlreadyRecording)

	// The single-unfinished-route invariant holds.
	routes, err := db.AllRoutes()
	require.NoError(t, err)
	unfinished := 0
	for _, r := range routes {
		if r.EndTime == nil {
			unfinished++
		}
	}
	assert.Equal(t, 1, unfinished)
}

func TestRecording_AppendsPointsInOrder(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(0, 0)
	c := testCoordinator(t, db, src, Options{})

	route, err := c.StartRecording(context.Background())
	require.NoError(t, err)

	src.emit(0.001, 0.001)
	src.emit(0.002, 0.002)
	src.emit(0.003, 0.003)
	waitForPoints(t, db, route.ID, 3)

	points, err := db.PointsForRoute(route.ID)
	require.NoError(t, err)
	require.Len(t, points, 3)
	for i := 1; i < len(points); i++ {
		assert.GreaterOrEqual(t, points[i].Timestamp, points[i-1].Timestamp)
	}
	assert.InDelta(t, 0.001, points[0].Latitude, 1e-9)
	assert.InDelta(t, 0.003, points[2].Latitude, 1e-9)
}

func TestPause_DropsSamples(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(0, 0)
	c := testCoordinator(t, db, src, Options{})

	route, err := c.StartRecording(context.Background())
	require.NoError(t, err)

	src.emit(1, 1)
	waitForPoints(t, db, route.ID, 1)

	require.NoError(t, c.PauseRecording())
	assert.Equal(t, StatePaused, c.State())
	// Let the host drain the pause command before emitting.
	time.Sleep(50 * time.Millisecond)

	src.emit(2, 2)
	src.emit(3, 3)
	time.Sleep(100 * time.Millisecond)

	n, err := db.CountPoints(route.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "paused fixes must be dropped, not buffered")

	require.NoError(t, c.ResumeRecording())
	time.Sleep(50 * time.Millisecond)

	src.emit(4, 4)
	waitForPoints(t, db, route.ID, 2)

	points, _ := db.PointsForRoute(route.ID)
	assert.Equal(t, route.ID, points[1].RouteID, "resume must append to the same route")
	assert.InDelta(t, 4.0, points[1].Latitude, 1e-9)
}

func TestResume_WhenNotPaused(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(0, 0)
	c := testCoordinator(t, db, src, Options{})

	require.ErrorIs(t, c.ResumeRecording(), ErrNotPaused)

	_, err := c.StartRecording(context.Background())
	require.NoError(t, err)
	require.ErrorIs(t, c.ResumeRecording(), ErrNotPaused)
}

func TestStop_FewPoints(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(0, 0)
	c := testCoordinator(t, db, src, Options{})

	route, err := c.StartRecording(context.Background())
	require.NoError(t, err)

	before := models.NowMillis()
	got, err := c.StopRecording(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, StateIdle, c.State())
	assert.Zero(t, c.CurrentRouteID())
	require.NotNil(t, got.EndTime)
	assert.GreaterOrEqual(t, *got.EndTime, before)
	assert.Nil(t, got.AverageSpeed, "average speed must stay unset with fewer than 2 points")
	assert.Equal(t, route.ID, c.LastViewedRouteID())
}

func TestStop_WhenIdle(t *testing.T) {
	db := testStore(t)
	c := testCoordinator(t, db, newFakeSource(), Options{})

	_, err := c.StopRecording(context.Background())
	require.ErrorIs(t, err, ErrNotRecording)
}

func TestAverageSpeed(t *testing.T) {
	db := testStore(t)

	// One unfinished route with two points exactly one hour and ~1000
	// meters apart (1000 m north of the equator origin).
	routeID, err := db.InsertRoute(models.NewRoute(models.Fix{}, 11, 512, 512))
	require.NoError(t, err)
	const latPerKm = 1.0 / 111.195
	_, err = db.InsertPoint(models.NewRoutePointAt(routeID, 0, 0, 0))
	require.NoError(t, err)
	_, err = db.InsertPoint(models.NewRoutePointAt(routeID, latPerKm, 0, 3600000))
	require.NoError(t, err)

	// Recovery adopts the route; stopping computes the statistics.
	src := newFakeSource()
	c := testCoordinator(t, db, src, Options{})
	require.Equal(t, StateRecording, c.State())

	got, err := c.StopRecording(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got.AverageSpeed)
	assert.InDelta(t, 1.0, *got.AverageSpeed, 0.01, "1 km in 1 h is 1 km/h")
	require.NotNil(t, got.EndTime)
	assert.Equal(t, int64(3600000), *got.EndTime, "end time is the last point's timestamp")
}

func TestCrashRecovery(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(10, 10)

	c1 := testCoordinator(t, db, src, Options{})
	route, err := c1.StartRecording(context.Background())
	require.NoError(t, err)
	src.emit(10.001, 10.001)
	waitForPoints(t, db, route.ID, 1)

	// Simulated process death: no stop, just teardown.
	c1.Close()

	src2 := newFakeSource()
	c2, err := New(context.Background(), db, src2, Options{})
	require.NoError(t, err)
	defer c2.Close()

	assert.Equal(t, StateRecording, c2.State())
	assert.Equal(t, route.ID, c2.CurrentRouteID())

	routes, err := db.AllRoutes()
	require.NoError(t, err)
	assert.Len(t, routes, 1, "recovery must not create a second route")

	// The recovered host keeps appending to the same route.
	src2.emit(10.002, 10.002)
	waitForPoints(t, db, route.ID, 2)
}

func TestSnapshotTrigger_AtTwoPoints(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(0, 0)
	snaps := &fakeSnapshotter{}
	c := testCoordinator(t, db, src, Options{Snapshots: snaps})

	route, err := c.StartRecording(context.Background())
	require.NoError(t, err)

	src.emit(0, 0)
	waitForPoints(t, db, route.ID, 1)
	assert.Equal(t, 0, snaps.callCount())

	src.emit(0, 0.001)
	waitForPoints(t, db, route.ID, 2)
	require.Eventually(t, func() bool {
		return snaps.callCount() == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		r, err := db.GetRoute(route.ID)
		return err == nil && r.SnapshotPath != nil
	}, 2*time.Second, 5*time.Millisecond, "snapshot path must be persisted")

	// Further points must not re-arm the trigger.
	src.emit(0, 0.002)
	waitForPoints(t, db, route.ID, 3)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, snaps.callCount())
}

func TestSnapshotFailure_SurfacesDiagnostic(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(0, 0)
	snaps := &fakeSnapshotter{fail: true}
	c := testCoordinator(t, db, src, Options{Snapshots: snaps})

	route, err := c.StartRecording(context.Background())
	require.NoError(t, err)

	src.emit(0, 0)
	src.emit(0, 0.001)
	waitForPoints(t, db, route.ID, 2)

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-c.Events():
			if ev.Kind == EventSnapshotFailed {
				assert.Equal(t, route.ID, ev.RouteID)
				assert.Contains(t, ev.Message, "render failed")
				assert.Equal(t, StateRecording, c.State(), "recording unaffected by snapshot failure")
				return
			}
		case <-deadline:
			t.Fatal("no snapshot failure event")
		}
	}
}

func TestPrefetch_OnStartWhenOnline(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(0, 0)
	tiles := &fakePrefetcher{}
	c := testCoordinator(t, db, src, Options{Tiles: tiles, Net: &fakeNet{online: true}})

	_, err := c.StartRecording(context.Background())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return tiles.calls.Load() >= 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPrefetch_SkippedOffline(t *testing.T) {
	db := testStore(t)
	src := newFakeSource()
	src.setLast(0, 0)
	tiles := &fakePrefetcher{}
	c := testCoordinator(t, db, src, Options{Tiles: tiles, Net: &fakeNet{online: false}})

	_, err := c.StartRecording(context.Background())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, tiles.calls.Load())
}

func TestPrefetchAll(t *testing.T) {
	db := testStore(t)
	for i := 0; i < 3; i++ {
		id, err := db.InsertRoute(models.NewRoute(models.Fix{Latitude: float64(i)}, 11, 512, 512))
		require.NoError(t, err)
		require.NoError(t, db.UpdateRouteEndTime(id, 1000))
	}

	tiles := &fakePrefetcher{}
	c := testCoordinator(t, db, newFakeSource(), Options{Tiles: tiles})

	c.PrefetchAll(context.Background())
	assert.Equal(t, int64(3), tiles.calls.Load())
}

func TestViewRoute(t *testing.T) {
	db := testStore(t)
	id, err := db.InsertRoute(models.NewRoute(models.Fix{Latitude: 48.85, Longitude: 2.35}, 11, 512, 512))
	require.NoError(t, err)
	require.NoError(t, db.UpdateRouteEndTime(id, 1000))

	tiles := &fakePrefetcher{}
	c := testCoordinator(t, db, newFakeSource(), Options{Tiles: tiles})

	route, err := c.ViewRoute(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, route.ID)
	assert.Equal(t, id, c.LastViewedRouteID())

	require.Eventually(t, func() bool {
		return tiles.calls.Load() == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, err = c.ViewRoute(context.Background(), 9999)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "recording", StateRecording.String())
	assert.Equal(t, "paused", StatePaused.String())
}
