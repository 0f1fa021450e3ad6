// ABOUTME: GeoJSON generation utilities
// ABOUTME: Converts routes and their points to GeoJSON FeatureCollections

package geojson

import (
	"encoding/json"
	"time"

	"github.com/mcmeister/gpstrack/internal/models"
)

// FeatureCollection represents a GeoJSON FeatureCollection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// Feature represents a GeoJSON Feature.
type Feature struct {
	Type       string                 `json:"type"`
	Geometry   Geometry               `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// Geometry represents a GeoJSON Geometry.
type Geometry struct {
	Type        string      `json:"type"`
	Coordinates interface{} `json:"coordinates"`
}

// PointCoordinates represents [longitude, latitude] for a Point.
type PointCoordinates [2]float64

// LineCoordinates represents [[lng, lat], [lng, lat], ...] for a LineString.
type LineCoordinates []PointCoordinates

func routeName(route *models.Route) string {
	if route.Name != nil {
		return *route.Name
	}
	return ""
}

// ToPointsFeatureCollection converts a route's points to a FeatureCollection
// of Point features.
func ToPointsFeatureCollection(route *models.Route, points []*models.RoutePoint) *FeatureCollection {
	features := make([]Feature, 0, len(points))

	for _, pt := range points {
		props := map[string]interface{}{
			"route_id":    pt.RouteID,
			"recorded_at": time.UnixMilli(pt.Timestamp).UTC().Format(time.RFC3339),
		}
		if name := routeName(route); name != "" {
			props["route_name"] = name
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: PointCoordinates{pt.Longitude, pt.Latitude},
			},
			Properties: props,
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// ToLineFeatureCollection converts a route's points to a FeatureCollection
// holding a single LineString. Routes with fewer than 2 points produce an
// empty collection.
func ToLineFeatureCollection(route *models.Route, points []*models.RoutePoint) *FeatureCollection {
	features := make([]Feature, 0, 1)

	if len(points) >= 2 {
		coords := make(LineCoordinates, len(points))
		for i, pt := range points {
			coords[i] = PointCoordinates{pt.Longitude, pt.Latitude}
		}

		props := map[string]interface{}{
			"route_id":    route.ID,
			"point_count": len(points),
			"start_time":  time.UnixMilli(route.StartTime).UTC().Format(time.RFC3339),
		}
		if name := routeName(route); name != "" {
			props["name"] = name
		}
		if route.EndTime != nil {
			props["end_time"] = time.UnixMilli(*route.EndTime).UTC().Format(time.RFC3339)
		}
		if route.AverageSpeed != nil {
			props["avg_speed_kmh"] = *route.AverageSpeed
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "LineString",
				Coordinates: coords,
			},
			Properties: props,
		})
	}

	return &FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}

// ToJSON serializes a FeatureCollection to JSON.
func (fc *FeatureCollection) ToJSON() ([]byte, error) {
	return json.Marshal(fc)
}

// ToJSONIndent serializes a FeatureCollection to indented JSON.
func (fc *FeatureCollection) ToJSONIndent() ([]byte, error) {
	return json.MarshalIndent(fc, "", "  ")
}
