// ABOUTME: Repository interfaces for route recording storage
// ABOUTME: Enables testability and storage backend swapping

package storage

import (
	"github.com/mcmeister/gpstrack/internal/models"
)

// RouteRepository defines operations for managing routes.
type RouteRepository interface {
	InsertRoute(route *models.Route) (int64, error)
	GetRoute(id int64) (*models.Route, error)
	UpdateRouteEndTime(id, endTime int64) error
	// FinalizeRoute atomically sets all finalize-time fields.
	FinalizeRoute(id, endTime int64, snapshotPath *string, averageSpeed float64) error
	UpdateRouteSnapshot(id int64, path string) error
	UpdateRouteName(id int64, name string) error
	// LastUnfinishedRoute returns the route with no end time, or ErrNotFound.
	// If more than one exists the most recent by id is returned.
	LastUnfinishedRoute() (*models.Route, error)
	AllRoutes() ([]*models.Route, error)
}

// PointRepository defines operations for managing route points.
type PointRepository interface {
	InsertPoint(point *models.RoutePoint) (int64, error)
	// PointsForRoute returns points ordered by timestamp ascending.
	PointsForRoute(routeID int64) ([]*models.RoutePoint, error)
	CountPoints(routeID int64) (int, error)
}

// Watchable exposes live queries: subscribers receive the current snapshot
// immediately and a fresh one after every mutation affecting the query.
type Watchable interface {
	WatchRoutes() *RoutesSubscription
	WatchPoints(routeID int64) *PointsSubscription
	Unsubscribe(sub Subscription)
}

// Repository combines all repository operations with lifecycle management.
type Repository interface {
	RouteRepository
	PointRepository
	Watchable
	Close() error
}

// Compile-time check that SQLiteDB implements Repository.
var _ Repository = (*SQLiteDB)(nil)
