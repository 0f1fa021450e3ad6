// ABOUTME: Export command for generating GeoJSON and GPX output
// ABOUTME: Supports point and line geometries and file or stdout targets

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/mcmeister/gpstrack/internal/geojson"
	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/mcmeister/gpstrack/internal/ui"
	"github.com/spf13/cobra"
	"github.com/tkrajina/gpxgo/gpx"
)

var exportCmd = &cobra.Command{
	Use:     "export <route-id>",
	Aliases: []string{"e"},
	Short:   "Export a route as GeoJSON or GPX",
	Long: `Export a route's recorded points.

Examples:
  # Export as a GeoJSON LineString
  gpstrack export 3 --format geojson

  # Export as individual GeoJSON Points
  gpstrack export 3 --format geojson --geometry points

  # Export as a GPX track
  gpstrack export 3 --format gpx --output ride.gpx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRouteID(args[0])
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format != "geojson" && format != "gpx" {
			return fmt.Errorf("unsupported format: %s (use 'geojson' or 'gpx')", format)
		}
		geometry, _ := cmd.Flags().GetString("geometry")
		if geometry != "points" && geometry != "line" {
			return fmt.Errorf("unsupported geometry: %s (use 'points' or 'line')", geometry)
		}

		route, err := db.GetRoute(id)
		if err != nil {
			return fmt.Errorf("route %d not found", id)
		}
		points, err := db.PointsForRoute(id)
		if err != nil {
			return fmt.Errorf("failed to load points: %w", err)
		}
		if len(points) == 0 {
			return fmt.Errorf("route %d has no points", id)
		}

		output, _ := cmd.Flags().GetString("output")

		var data []byte
		if format == "gpx" {
			data, err = toGPX(route, points)
		} else if geometry == "line" {
			data, err = geojson.ToLineFeatureCollection(route, points).ToJSONIndent()
		} else {
			data, err = geojson.ToPointsFeatureCollection(route, points).ToJSONIndent()
		}
		if err != nil {
			return fmt.Errorf("failed to generate %s: %w", format, err)
		}

		if output != "" {
			if err := os.WriteFile(output, data, 0644); err != nil { //nolint:gosec // 0644 is intentional for data export files
				return fmt.Errorf("failed to write file: %w", err)
			}
			fmt.Fprintf(os.Stderr, "Wrote %d points to %s\n", len(points), output)
		} else {
			fmt.Println(string(data))
		}

		return nil
	},
}

func toGPX(route *models.Route, points []*models.RoutePoint) ([]byte, error) {
	segment := gpx.GPXTrackSegment{}
	for _, pt := range points {
		segment.Points = append(segment.Points, gpx.GPXPoint{
			Point: gpx.Point{
				Latitude:  pt.Latitude,
				Longitude: pt.Longitude,
			},
			Timestamp: time.UnixMilli(pt.Timestamp).UTC(),
		})
	}

	doc := &gpx.GPX{
		Creator: "gpstrack",
		Name:    ui.RouteDisplayName(route),
		Tracks: []gpx.GPXTrack{
			{
				Name:     ui.RouteDisplayName(route),
				Segments: []gpx.GPXTrackSegment{segment},
			},
		},
	}
	return doc.ToXml(gpx.ToXmlParams{Version: "1.1", Indent: true})
}

func init() {
	exportCmd.Flags().StringP("format", "f", "geojson", "output format (geojson, gpx)")
	exportCmd.Flags().StringP("geometry", "g", "line", "geojson geometry type (points, line)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(exportCmd)
}
