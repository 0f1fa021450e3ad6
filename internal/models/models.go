// ABOUTME: Core data models for routes, route points, and location fixes
// ABOUTME: Provides constructor functions and coordinate validation

package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ValidateCoordinates checks if latitude and longitude are within valid ranges.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return fmt.Errorf("coordinates cannot be NaN")
	}
	if math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("coordinates cannot be infinite")
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude must be between -180 and 180")
	}
	return nil
}

// ValidateName checks if a route name is valid (non-empty, within length limits).
// Note: This validates the raw input - callers should trim whitespace themselves if needed.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("name cannot be empty or whitespace")
	}
	if len(name) > 255 {
		return fmt.Errorf("name too long (max 255 characters)")
	}
	return nil
}

// Route represents one recording session.
//
// A route with a nil EndTime is the active (unfinished) route; at most one
// such row exists at a time and it is the marker used for crash recovery.
type Route struct {
	ID           int64    `json:"id"`
	Name         *string  `json:"name,omitempty"`
	StartTime    int64    `json:"start_time"` // epoch milliseconds
	EndTime      *int64   `json:"end_time,omitempty"`
	CenterLat    float64  `json:"center_lat"`
	CenterLon    float64  `json:"center_lon"`
	Zoom         int      `json:"zoom"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	SnapshotPath *string  `json:"snapshot_path,omitempty"`
	AverageSpeed *float64 `json:"average_speed,omitempty"` // km/h, set on stop
}

// Finished reports whether the route has been stopped.
func (r *Route) Finished() bool {
	return r.EndTime != nil
}

// RoutePoint represents one location sample belonging to a route.
// Points are appended in sample order and never mutated.
type RoutePoint struct {
	ID        int64   `json:"id"`
	RouteID   int64   `json:"route_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"` // epoch milliseconds
}

// Fix is a single position report from the location source.
// Fixes are ephemeral; only accepted samples become RoutePoints.
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  float64   `json:"altitude"`
	Accuracy  float64   `json:"accuracy"` // meters, 0 when unknown
	Time      time.Time `json:"time"`
}

// NowMillis returns the current time as epoch milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// NewRoute creates an unfinished route anchored at the given fix.
func NewRoute(fix Fix, zoom, width, height int) *Route {
	return &Route{
		StartTime: NowMillis(),
		CenterLat: fix.Latitude,
		CenterLon: fix.Longitude,
		Zoom:      zoom,
		Width:     width,
		Height:    height,
	}
}

// NewRoutePoint creates a point for a route stamped with the current time.
func NewRoutePoint(routeID int64, lat, lon float64) *RoutePoint {
	return &RoutePoint{
		RouteID:   routeID,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: NowMillis(),
	}
}

// NewRoutePointAt creates a point with an explicit timestamp.
func NewRoutePointAt(routeID int64, lat, lon float64, ts int64) *RoutePoint {
	return &RoutePoint{
		RouteID:   routeID,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: ts,
	}
}
