// ABOUTME: Route list command
// ABOUTME: Lists all recorded routes with their stats

package main

import (
	"fmt"
	"os"

	"github.com/mcmeister/gpstrack/internal/geo"
	"github.com/mcmeister/gpstrack/internal/ui"
	"github.com/spf13/cobra"
)

var routesCmd = &cobra.Command{
	Use:     "routes",
	Aliases: []string{"ls"},
	Short:   "List recorded routes",
	RunE: func(cmd *cobra.Command, args []string) error {
		routes, err := db.AllRoutes()
		if err != nil {
			return fmt.Errorf("failed to list routes: %w", err)
		}

		if len(routes) == 0 {
			fmt.Println("No routes recorded yet. Use 'gpstrack record' to start one.")
			return nil
		}

		for _, route := range routes {
			points, err := db.PointsForRoute(route.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load points for route %d: %v\n", route.ID, err)
				continue
			}
			fmt.Printf("%3d  %s\n", route.ID, ui.FormatRoute(route, len(points), geo.PathDistance(points)/1000))
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(routesCmd)
}
