// ABOUTME: Snapshot regeneration command
// ABOUTME: Rebuilds a route's preview image from cached tiles

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/mcmeister/gpstrack/internal/geo"
	"github.com/mcmeister/gpstrack/internal/snapshot"
	"github.com/mcmeister/gpstrack/internal/tilecache"
	"github.com/spf13/cobra"
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <route-id>",
	Short: "Regenerate a route's preview image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRouteID(args[0])
		if err != nil {
			return err
		}

		route, err := db.GetRoute(id)
		if err != nil {
			return fmt.Errorf("route %d not found", id)
		}
		points, err := db.PointsForRoute(id)
		if err != nil {
			return fmt.Errorf("failed to load points: %w", err)
		}
		if len(points) < 2 {
			return fmt.Errorf("route %d has %d points; at least 2 are needed", id, len(points))
		}

		logger := log.New(os.Stderr)
		tiles := tilecache.New(cfg.GetDataDir(), cfg.GetTileURL(), cfg.TileAPIKey, cfg.GetHTTPTimeout(), logger)
		gen := snapshot.NewGenerator(tiles, cfg.SnapshotsDir(), cfg.GetTileRadius(), logger)

		bearing := geo.Bearing(points[0].Latitude, points[0].Longitude, points[1].Latitude, points[1].Longitude)
		path, err := gen.Generate(context.Background(), route, points, bearing)
		if err != nil {
			return fmt.Errorf("failed to generate snapshot: %w", err)
		}
		if err := db.UpdateRouteSnapshot(id, path); err != nil {
			return fmt.Errorf("failed to record snapshot path: %w", err)
		}

		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
}
