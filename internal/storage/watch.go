// ABOUTME: Live query subscriptions for the route store
// ABOUTME: Publishes fresh snapshots to subscribers after every mutation

package storage

import (
	"sync"

	"github.com/google/uuid"
	"github.com/mcmeister/gpstrack/internal/models"
)

// Subscription is the common handle for live query subscriptions.
type Subscription interface {
	id() uuid.UUID
}

// RoutesSubscription delivers snapshots of the full route list. The channel
// holds at most one pending snapshot; an unread snapshot is replaced by the
// next one (latest wins), so a slow reader never blocks the store.
type RoutesSubscription struct {
	key uuid.UUID
	C   chan []*models.Route
}

func (s *RoutesSubscription) id() uuid.UUID { return s.key }

func (s *RoutesSubscription) push(routes []*models.Route) {
	select {
	case s.C <- routes:
		return
	default:
	}
	select {
	case <-s.C:
	default:
	}
	select {
	case s.C <- routes:
	default:
	}
}

// PointsSubscription delivers snapshots of one route's point list with the
// same latest-wins semantics as RoutesSubscription.
type PointsSubscription struct {
	key     uuid.UUID
	routeID int64
	C       chan []*models.RoutePoint
}

func (s *PointsSubscription) id() uuid.UUID { return s.key }

func (s *PointsSubscription) push(points []*models.RoutePoint) {
	select {
	case s.C <- points:
		return
	default:
	}
	select {
	case <-s.C:
	default:
	}
	select {
	case s.C <- points:
	default:
	}
}

// watcher fans out store mutations to active subscriptions.
type watcher struct {
	mu        sync.RWMutex
	closed    bool
	routeSubs map[uuid.UUID]*RoutesSubscription
	pointSubs map[int64]map[uuid.UUID]*PointsSubscription
}

func newWatcher() *watcher {
	return &watcher{
		routeSubs: make(map[uuid.UUID]*RoutesSubscription),
		pointSubs: make(map[int64]map[uuid.UUID]*PointsSubscription),
	}
}

func (w *watcher) subscribeRoutes() *RoutesSubscription {
	sub := &RoutesSubscription{key: uuid.New(), C: make(chan []*models.Route, 1)}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		close(sub.C)
		return sub
	}
	w.routeSubs[sub.key] = sub
	return sub
}

func (w *watcher) subscribePoints(routeID int64) *PointsSubscription {
	sub := &PointsSubscription{key: uuid.New(), routeID: routeID, C: make(chan []*models.RoutePoint, 1)}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		close(sub.C)
		return sub
	}
	if w.pointSubs[routeID] == nil {
		w.pointSubs[routeID] = make(map[uuid.UUID]*PointsSubscription)
	}
	w.pointSubs[routeID][sub.key] = sub
	return sub
}

func (w *watcher) unsubscribe(sub Subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch s := sub.(type) {
	case *RoutesSubscription:
		if _, ok := w.routeSubs[s.key]; ok {
			delete(w.routeSubs, s.key)
			close(s.C)
		}
	case *PointsSubscription:
		if subs, ok := w.pointSubs[s.routeID]; ok {
			if _, ok := subs[s.key]; ok {
				delete(subs, s.key)
				close(s.C)
			}
			if len(subs) == 0 {
				delete(w.pointSubs, s.routeID)
			}
		}
	}
}

func (w *watcher) hasRouteSubs() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.routeSubs) > 0
}

func (w *watcher) hasPointSubs(routeID int64) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.pointSubs[routeID]) > 0
}

func (w *watcher) publishRoutes(routes []*models.Route) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sub := range w.routeSubs {
		sub.push(routes)
	}
}

func (w *watcher) publishPoints(routeID int64, points []*models.RoutePoint) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	for _, sub := range w.pointSubs[routeID] {
		sub.push(points)
	}
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	for key, sub := range w.routeSubs {
		delete(w.routeSubs, key)
		close(sub.C)
	}
	for routeID, subs := range w.pointSubs {
		for key, sub := range subs {
			delete(subs, key)
			close(sub.C)
		}
		delete(w.pointSubs, routeID)
	}
}
