// ABOUTME: Geodesic and Web-Mercator tile math
// ABOUTME: Haversine distance, forward azimuth, tile coordinates, pixel projection

package geo

import (
	"math"

	"github.com/mcmeister/gpstrack/internal/models"
)

// EarthRadiusM is the mean Earth radius in meters used for haversine distances.
const EarthRadiusM = 6371000.0

// baseResolution is the Web-Mercator meters-per-pixel at zoom 0, latitude 0,
// for 256px tiles (2·π·6378137/256).
const baseResolution = 156543.03392

// metersPerDegreeLat approximates one degree of latitude in meters.
const metersPerDegreeLat = 111320.0

// Haversine returns the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusM * c
}

// PathDistance returns the summed haversine distance in meters over
// consecutive points.
func PathDistance(points []*models.RoutePoint) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Haversine(
			points[i-1].Latitude, points[i-1].Longitude,
			points[i].Latitude, points[i].Longitude,
		)
	}
	return total
}

// Bearing returns the initial forward azimuth in degrees from the first
// point to the second, normalized to [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// TileFloat converts a coordinate to fractional Web-Mercator tile
// coordinates at the given zoom. sinLat is clamped to avoid the projection
// singularity at the poles.
func TileFloat(lat, lon float64, zoom int) (x, y float64) {
	z := math.Pow(2, float64(zoom))
	x = (lon + 180) / 360 * z

	sinLat := math.Sin(lat * math.Pi / 180)
	if sinLat > 0.9999 {
		sinLat = 0.9999
	}
	if sinLat < -0.9999 {
		sinLat = -0.9999
	}
	y = (0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)) * z
	return x, y
}

// TileXY converts a coordinate to integer tile coordinates at the given
// zoom, clamped into [0, 2^zoom-1].
func TileXY(lat, lon float64, zoom int) (x, y int) {
	fx, fy := TileFloat(lat, lon, zoom)
	max := 1<<uint(zoom) - 1
	return clampTile(int(math.Floor(fx)), max), clampTile(int(math.Floor(fy)), max)
}

func clampTile(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

// MetersPerPixel returns the ground resolution at the given latitude and
// zoom, assuming 256px tiles.
func MetersPerPixel(lat float64, zoom int) float64 {
	return baseResolution * math.Cos(lat*math.Pi/180) / math.Pow(2, float64(zoom))
}

// LatLonToPixel linearly maps a coordinate into pixel space for an image of
// the given size centered on centerLat/centerLon at the given zoom. The
// image center maps to (width/2, height/2); latitude grows upward, so pixel
// y grows toward the south.
func LatLonToPixel(lat, lon, centerLat, centerLon float64, zoom, width, height int) (px, py float64) {
	mpp := MetersPerPixel(centerLat, zoom)

	latSpan := float64(height) * mpp / metersPerDegreeLat
	lonSpan := float64(width) * mpp / (metersPerDegreeLat * math.Cos(centerLat*math.Pi/180))

	px = (lon - (centerLon - lonSpan/2)) / lonSpan * float64(width)
	py = ((centerLat + latSpan/2) - lat) / latSpan * float64(height)
	return px, py
}
