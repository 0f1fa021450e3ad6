// ABOUTME: SQLite storage implementation for routes and route points
// ABOUTME: Provides local-only persistence using pure Go SQLite driver

package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mcmeister/gpstrack/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteDB implements Repository with a local SQLite database.
type SQLiteDB struct {
	db    *sql.DB
	path  string
	watch *watcher
}

// DefaultDBPath returns the default database path.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "gpstrack", "gpstrack.db")
}

// NewSQLiteDB creates a new SQLite database at the given path.
// Creates the directory and database file if they don't exist.
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil { //nolint:gosec // 0750 is appropriate for user data directory
		return nil, fmt.Errorf("create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := &SQLiteDB{db: db, path: path, watch: newWatcher()}

	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// migrate creates or updates the database schema.
func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS route (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT,
			start_time INTEGER NOT NULL,
			end_time INTEGER,
			center_lat REAL NOT NULL,
			center_lon REAL NOT NULL,
			zoom INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			snapshot_path TEXT,
			avg_speed REAL
		);

		CREATE TABLE IF NOT EXISTS route_point (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			route_id INTEGER NOT NULL REFERENCES route(id) ON DELETE CASCADE,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			timestamp INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_route_point_route_id ON route_point(route_id);
		CREATE INDEX IF NOT EXISTS idx_route_point_timestamp ON route_point(route_id, timestamp);
		CREATE INDEX IF NOT EXISTS idx_route_unfinished ON route(end_time) WHERE end_time IS NULL;
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection and drops all live subscriptions.
func (s *SQLiteDB) Close() error {
	s.watch.close()
	return s.db.Close()
}

const routeColumns = `id, name, start_time, end_time, center_lat, center_lon, zoom, width, height, snapshot_path, avg_speed`

// InsertRoute creates a new route and returns its generated id.
func (s *SQLiteDB) InsertRoute(route *models.Route) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO route (name, start_time, end_time, center_lat, center_lon, zoom, width, height, snapshot_path, avg_speed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		route.Name, route.StartTime, route.EndTime, route.CenterLat, route.CenterLon,
		route.Zoom, route.Width, route.Height, route.SnapshotPath, route.AverageSpeed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert route: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("route id: %w", err)
	}
	route.ID = id
	s.notifyRoutes()
	return id, nil
}

// GetRoute retrieves a route by id.
func (s *SQLiteDB) GetRoute(id int64) (*models.Route, error) {
	row := s.db.QueryRow(`SELECT `+routeColumns+` FROM route WHERE id = ?`, id)
	return scanRoute(row)
}

// UpdateRouteEndTime sets only the end time, used when a route has too few
// points to compute statistics.
func (s *SQLiteDB) UpdateRouteEndTime(id, endTime int64) error {
	if _, err := s.db.Exec(`UPDATE route SET end_time = ? WHERE id = ?`, endTime, id); err != nil {
		return fmt.Errorf("update route end time: %w", err)
	}
	s.notifyRoutes()
	return nil
}

// FinalizeRoute atomically sets end time, snapshot path, and average speed.
func (s *SQLiteDB) FinalizeRoute(id, endTime int64, snapshotPath *string, averageSpeed float64) error {
	_, err := s.db.Exec(
		`UPDATE route SET end_time = ?, snapshot_path = ?, avg_speed = ? WHERE id = ?`,
		endTime, snapshotPath, averageSpeed, id,
	)
	if err != nil {
		return fmt.Errorf("finalize route: %w", err)
	}
	s.notifyRoutes()
	return nil
}

// UpdateRouteSnapshot records the generated snapshot path for a route.
func (s *SQLiteDB) UpdateRouteSnapshot(id int64, path string) error {
	if _, err := s.db.Exec(`UPDATE route SET snapshot_path = ? WHERE id = ?`, path, id); err != nil {
		return fmt.Errorf("update route snapshot: %w", err)
	}
	s.notifyRoutes()
	return nil
}

// UpdateRouteName sets the user label of a route.
func (s *SQLiteDB) UpdateRouteName(id int64, name string) error {
	if _, err := s.db.Exec(`UPDATE route SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("update route name: %w", err)
	}
	s.notifyRoutes()
	return nil
}

// LastUnfinishedRoute returns the route with no end time, or ErrNotFound.
// By construction at most one such route exists; if the invariant is ever
// violated the most recent by id wins, deterministically.
func (s *SQLiteDB) LastUnfinishedRoute() (*models.Route, error) {
	row := s.db.QueryRow(
		`SELECT ` + routeColumns + ` FROM route WHERE end_time IS NULL ORDER BY id DESC LIMIT 1`,
	)
	return scanRoute(row)
}

// AllRoutes returns all routes ordered by id.
func (s *SQLiteDB) AllRoutes() ([]*models.Route, error) {
	rows, err := s.db.Query(`SELECT ` + routeColumns + ` FROM route ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var routes []*models.Route
	for rows.Next() {
		route, err := scanRouteFromRows(rows)
		if err != nil {
			return nil, err
		}
		routes = append(routes, route)
	}
	return routes, rows.Err()
}

// InsertPoint appends a point to its route and returns the generated id.
func (s *SQLiteDB) InsertPoint(point *models.RoutePoint) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO route_point (route_id, latitude, longitude, timestamp) VALUES (?, ?, ?, ?)`,
		point.RouteID, point.Latitude, point.Longitude, point.Timestamp,
	)
	if err != nil {
		return 0, fmt.Errorf("insert point: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("point id: %w", err)
	}
	point.ID = id
	s.notifyPoints(point.RouteID)
	return id, nil
}

// PointsForRoute returns all points of a route, timestamp ascending.
// Insertion order is the tiebreaker for equal timestamps.
func (s *SQLiteDB) PointsForRoute(routeID int64) ([]*models.RoutePoint, error) {
	rows, err := s.db.Query(
		`SELECT id, route_id, latitude, longitude, timestamp
		 FROM route_point WHERE route_id = ? ORDER BY timestamp, id`,
		routeID,
	)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []*models.RoutePoint
	for rows.Next() {
		var pt models.RoutePoint
		if err := rows.Scan(&pt.ID, &pt.RouteID, &pt.Latitude, &pt.Longitude, &pt.Timestamp); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		points = append(points, &pt)
	}
	return points, rows.Err()
}

// CountPoints returns the number of points recorded for a route.
func (s *SQLiteDB) CountPoints(routeID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM route_point WHERE route_id = ?`, routeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return n, nil
}

// WatchRoutes subscribes to the live route list query.
func (s *SQLiteDB) WatchRoutes() *RoutesSubscription {
	sub := s.watch.subscribeRoutes()
	if routes, err := s.AllRoutes(); err == nil {
		sub.push(routes)
	}
	return sub
}

// WatchPoints subscribes to the live point list query for one route.
func (s *SQLiteDB) WatchPoints(routeID int64) *PointsSubscription {
	sub := s.watch.subscribePoints(routeID)
	if points, err := s.PointsForRoute(routeID); err == nil {
		sub.push(points)
	}
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (s *SQLiteDB) Unsubscribe(sub Subscription) {
	s.watch.unsubscribe(sub)
}

func (s *SQLiteDB) notifyRoutes() {
	if !s.watch.hasRouteSubs() {
		return
	}
	routes, err := s.AllRoutes()
	if err != nil {
		return
	}
	s.watch.publishRoutes(routes)
}

func (s *SQLiteDB) notifyPoints(routeID int64) {
	if !s.watch.hasPointSubs(routeID) {
		return
	}
	points, err := s.PointsForRoute(routeID)
	if err != nil {
		return
	}
	s.watch.publishPoints(routeID, points)
}

func scanRoute(row *sql.Row) (*models.Route, error) {
	var r models.Route
	err := row.Scan(
		&r.ID, &r.Name, &r.StartTime, &r.EndTime, &r.CenterLat, &r.CenterLon,
		&r.Zoom, &r.Width, &r.Height, &r.SnapshotPath, &r.AverageSpeed,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan route: %w", err)
	}
	return &r, nil
}

func scanRouteFromRows(rows *sql.Rows) (*models.Route, error) {
	var r models.Route
	err := rows.Scan(
		&r.ID, &r.Name, &r.StartTime, &r.EndTime, &r.CenterLat, &r.CenterLon,
		&r.Zoom, &r.Width, &r.Height, &r.SnapshotPath, &r.AverageSpeed,
	)
	if err != nil {
		return nil, fmt.Errorf("scan route: %w", err)
	}
	return &r, nil
}
