// ABOUTME: Recording coordinator owning the Idle/Recording/Paused lifecycle
// ABOUTME: Recovers unfinished routes on startup and finalizes statistics on stop

package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mcmeister/gpstrack/internal/geo"
	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/mcmeister/gpstrack/internal/sampler"
	"github.com/mcmeister/gpstrack/internal/storage"
	"github.com/mcmeister/gpstrack/internal/tilecache"
)

// State is the coordinator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

var (
	// ErrNoFix means recording could not start because no location fix has
	// been received yet. No route row is created in that case.
	ErrNoFix = errors.New("no location fix available yet")
	// ErrAlreadyRecording means a route is already active; starting again
	// would violate the single-unfinished-route invariant.
	ErrAlreadyRecording = errors.New("a recording is already in progress")
	// ErrNotRecording means there is no active route to operate on.
	ErrNotRecording = errors.New("no recording in progress")
	// ErrNotPaused means resume was requested while not paused.
	ErrNotPaused = errors.New("recording is not paused")
)

// EventKind classifies coordinator events.
type EventKind int

const (
	// EventRouteStarted fires when a new route begins recording.
	EventRouteStarted EventKind = iota
	// EventRouteFinalized fires when a route has been stopped and persisted;
	// the route becomes the last-viewed route.
	EventRouteFinalized
	// EventSnapshotReady fires when a route snapshot has been generated.
	EventSnapshotReady
	// EventSnapshotFailed carries the diagnostic for a failed snapshot
	// generation; recording state is unaffected.
	EventSnapshotFailed
)

// Event is a diagnostic or lifecycle notification for UI collaborators.
type Event struct {
	Kind    EventKind
	RouteID int64
	Message string
}

// Prefetcher is the tile-cache surface the coordinator needs.
type Prefetcher interface {
	EnsureArea(ctx context.Context, lat, lon float64, zoom, radius int) tilecache.AreaResult
}

// NetworkStatus reports current connectivity.
type NetworkStatus interface {
	Online() bool
}

// Snapshotter generates a route preview image and returns its path.
type Snapshotter interface {
	Generate(ctx context.Context, route *models.Route, points []*models.RoutePoint, bearing float64) (string, error)
}

// Options configures a Coordinator. Tiles, Net, and Snapshots may be nil;
// the corresponding side effects are then skipped.
type Options struct {
	Tiles      Prefetcher
	Net        NetworkStatus
	Snapshots  Snapshotter
	Zoom       int
	Width      int
	Height     int
	TileRadius int
	Logger     *log.Logger
}

// Coordinator owns the recording state machine. All authoritative state
// lives in the store; the in-memory route id and pause flag are
// reconstructable from the single unfinished route row, which is how the
// coordinator survives process restarts.
type Coordinator struct {
	store storage.Repository
	src   sampler.Source
	opts  Options
	log   *log.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        State
	currentRoute int64
	lastViewed   int64
	host         *host

	events chan Event
}

// New creates a coordinator and performs crash recovery: if an unfinished
// route exists it is adopted as the current route, the state becomes
// Recording (unpaused), and the host is restarted for it.
func New(ctx context.Context, store storage.Repository, src sampler.Source, opts Options) (*Coordinator, error) {
	if opts.Zoom == 0 {
		opts.Zoom = 11
	}
	if opts.Width == 0 {
		opts.Width = 512
	}
	if opts.Height == 0 {
		opts.Height = 512
	}
	if opts.TileRadius == 0 {
		opts.TileRadius = 2
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Coordinator{
		store:  store,
		src:    src,
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
		events: make(chan Event, 16),
	}

	route, err := store.LastUnfinishedRoute()
	switch {
	case err == nil:
		count, countErr := store.CountPoints(route.ID)
		if countErr != nil {
			count = 0
		}
		c.currentRoute = route.ID
		c.state = StateRecording
		c.host = startHost(ctx, route.ID, store, src.Fixes(), count, c.log, c.onPointCount)
		c.log.Info("recovered unfinished route", "route", route.ID, "points", count)
	case errors.Is(err, storage.ErrNotFound):
		// Clean start.
	default:
		cancel()
		return nil, fmt.Errorf("recover unfinished route: %w", err)
	}

	return c, nil
}

// Events returns the coordinator's notification channel. Events are dropped
// rather than blocking when nobody listens.
func (c *Coordinator) Events() <-chan Event {
	return c.events
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CurrentRouteID returns the active route id, or 0 when idle.
func (c *Coordinator) CurrentRouteID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRoute
}

// LastViewedRouteID returns the most recently finalized or viewed route id.
func (c *Coordinator) LastViewedRouteID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastViewed
}

// StartRecording transitions Idle to Recording. It requires a current fix;
// without one no route row is created and ErrNoFix is returned.
func (c *Coordinator) StartRecording(ctx context.Context) (*models.Route, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return nil, ErrAlreadyRecording
	}

	fix, ok := c.src.Last()
	if !ok {
		return nil, ErrNoFix
	}

	c.prefetchAsync(fix.Latitude, fix.Longitude, c.opts.Zoom)

	route := models.NewRoute(fix, c.opts.Zoom, c.opts.Width, c.opts.Height)
	id, err := c.store.InsertRoute(route)
	if err != nil {
		return nil, fmt.Errorf("create route: %w", err)
	}

	c.currentRoute = id
	c.state = StateRecording
	c.host = startHost(c.ctx, id, c.store, c.src.Fixes(), 0, c.log, c.onPointCount)

	c.log.Info("recording started", "route", id, "lat", fix.Latitude, "lon", fix.Longitude)
	c.emit(Event{Kind: EventRouteStarted, RouteID: id})
	return route, nil
}

// PauseRecording keeps the host alive but stops appending samples.
func (c *Coordinator) PauseRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRecording {
		return ErrNotRecording
	}
	c.host.send(hostPause)
	c.state = StatePaused
	c.log.Info("recording paused", "route", c.currentRoute)
	return nil
}

// ResumeRecording resumes appending and re-attempts tile prefetch for the
// route's neighborhood.
func (c *Coordinator) ResumeRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StatePaused {
		return ErrNotPaused
	}
	c.host.send(hostResume)
	c.state = StateRecording

	if route, err := c.store.GetRoute(c.currentRoute); err == nil {
		c.prefetchAsync(route.CenterLat, route.CenterLon, route.Zoom)
	}
	c.log.Info("recording resumed", "route", c.currentRoute)
	return nil
}

// StopRecording finalizes the active route: end time and average speed are
// persisted, tiles around the anchor are prefetched, and the route becomes
// the last-viewed one.
func (c *Coordinator) StopRecording(ctx context.Context) (*models.Route, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateIdle {
		return nil, ErrNotRecording
	}

	routeID := c.currentRoute
	c.host.stop()
	c.host = nil

	c.finalize(routeID)

	c.state = StateIdle
	c.currentRoute = 0

	route, err := c.store.GetRoute(routeID)
	if err != nil {
		// Degraded: the row vanished under us. Non-fatal by design.
		c.log.Error("finalized route not found", "route", routeID, "err", err)
		return nil, nil
	}

	c.prefetchAsync(route.CenterLat, route.CenterLon, route.Zoom)
	c.lastViewed = routeID
	c.log.Info("recording stopped", "route", routeID)
	c.emit(Event{Kind: EventRouteFinalized, RouteID: routeID})
	return route, nil
}

// finalize persists end time and, with at least two points, the average
// speed computed from the recorded track.
func (c *Coordinator) finalize(routeID int64) {
	points, err := c.store.PointsForRoute(routeID)
	if err != nil {
		c.log.Error("load points for finalize", "route", routeID, "err", err)
		points = nil
	}

	if len(points) < 2 {
		if err := c.store.UpdateRouteEndTime(routeID, models.NowMillis()); err != nil {
			c.log.Error("persist end time", "route", routeID, "err", err)
		}
		return
	}

	first := points[0]
	last := points[len(points)-1]
	elapsedHours := float64(last.Timestamp-first.Timestamp) / 3.6e6
	distanceKm := geo.PathDistance(points) / 1000

	averageSpeed := 0.0
	if elapsedHours > 0 {
		averageSpeed = distanceKm / elapsedHours
	}

	// Keep whatever snapshot was generated while recording.
	var snapshotPath *string
	if route, err := c.store.GetRoute(routeID); err == nil {
		snapshotPath = route.SnapshotPath
	}

	if err := c.store.FinalizeRoute(routeID, last.Timestamp, snapshotPath, averageSpeed); err != nil {
		c.log.Error("finalize route", "route", routeID, "err", err)
	}
}

// ViewRoute marks a stored route as last viewed and prefetches its tile
// neighborhood, mirroring the select-for-viewing trigger.
func (c *Coordinator) ViewRoute(ctx context.Context, routeID int64) (*models.Route, error) {
	route, err := c.store.GetRoute(routeID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.lastViewed = routeID
	c.mu.Unlock()

	c.prefetchAsync(route.CenterLat, route.CenterLon, route.Zoom)
	return route, nil
}

// PrefetchAll prefetches the tile neighborhood of every stored route. Used
// on startup and whenever connectivity is restored.
func (c *Coordinator) PrefetchAll(ctx context.Context) {
	if c.opts.Tiles == nil {
		return
	}
	routes, err := c.store.AllRoutes()
	if err != nil {
		c.log.Error("list routes for prefetch", "err", err)
		return
	}
	for _, route := range routes {
		c.opts.Tiles.EnsureArea(ctx, route.CenterLat, route.CenterLon, route.Zoom, c.opts.TileRadius)
	}
}

// Close tears down the coordinator's background work. The active route, if
// any, stays unfinished on disk and is recovered on the next start.
func (c *Coordinator) Close() {
	c.mu.Lock()
	host := c.host
	c.host = nil
	c.mu.Unlock()

	c.cancel()
	if host != nil {
		host.wait()
	}
}

// prefetchAsync fires a best-effort area prefetch when the network is
// reachable. Failures inside the batch are already logged by the cache.
func (c *Coordinator) prefetchAsync(lat, lon float64, zoom int) {
	if c.opts.Tiles == nil {
		return
	}
	if c.opts.Net != nil && !c.opts.Net.Online() {
		return
	}
	go c.opts.Tiles.EnsureArea(c.ctx, lat, lon, zoom, c.opts.TileRadius)
}

// onPointCount fires from the host after each accepted sample. The first
// time a route reaches exactly two points, one snapshot generation is
// triggered; the trigger is edge-based and never re-arms.
func (c *Coordinator) onPointCount(routeID int64, count int) {
	if count != 2 || c.opts.Snapshots == nil {
		return
	}
	go c.generateSnapshot(routeID)
}

func (c *Coordinator) generateSnapshot(routeID int64) {
	route, err := c.store.GetRoute(routeID)
	if err != nil {
		c.log.Error("load route for snapshot", "route", routeID, "err", err)
		return
	}
	points, err := c.store.PointsForRoute(routeID)
	if err != nil || len(points) < 2 {
		return
	}

	bearing := geo.Bearing(
		points[0].Latitude, points[0].Longitude,
		points[1].Latitude, points[1].Longitude,
	)

	path, err := c.opts.Snapshots.Generate(c.ctx, route, points, bearing)
	if err != nil {
		c.log.Warn("snapshot generation failed", "route", routeID, "err", err)
		c.emit(Event{Kind: EventSnapshotFailed, RouteID: routeID, Message: err.Error()})
		return
	}

	if err := c.store.UpdateRouteSnapshot(routeID, path); err != nil {
		c.log.Error("persist snapshot path", "route", routeID, "err", err)
		return
	}
	c.emit(Event{Kind: EventSnapshotReady, RouteID: routeID, Message: path})
}

func (c *Coordinator) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
	}
}
