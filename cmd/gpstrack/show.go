// ABOUTME: Route show command
// ABOUTME: Shows one route's stats, point summary, and snapshot location

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/mcmeister/gpstrack/internal/geo"
	"github.com/mcmeister/gpstrack/internal/ui"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <route-id>",
	Short: "Show details of a route",
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

		fmt.Println(color.GreenString(ui.RouteDisplayName(route)))
		fmt.Printf("  started:  %s\n", time.UnixMilli(route.StartTime).Local().Format("Jan 2 2006, 3:04 PM"))
		if route.EndTime != nil {
			fmt.Printf("  ended:    %s\n", time.UnixMilli(*route.EndTime).Local().Format("Jan 2 2006, 3:04 PM"))
			fmt.Printf("  duration: %s\n", ui.FormatDuration(time.Duration(*route.EndTime-route.StartTime)*time.Millisecond))
		} else {
			fmt.Printf("  ended:    %s\n", color.YellowString("still recording"))
		}
		fmt.Printf("  distance: %s over %d points\n", ui.FormatDistance(geo.PathDistance(points)/1000), len(points))
		if route.AverageSpeed != nil {
			fmt.Printf("  speed:    %.1f km/h average\n", *route.AverageSpeed)
		}
		fmt.Printf("  center:   (%.4f, %.4f) at zoom %d\n", route.CenterLat, route.CenterLon, route.Zoom)
		if route.SnapshotPath != nil {
			fmt.Printf("  snapshot: %s\n", *route.SnapshotPath)
		}

		return nil
	},
}

func parseRouteID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid route id: %s", s)
	}
	return id, nil
}

func init() {
	rootCmd.AddCommand(showCmd)
}
