// ABOUTME: Route rename command
// ABOUTME: Sets or changes a route's display name

package main

import (
	"fmt"
	"strings"

	"github.com/mcmeister/gpstrack/internal/models"
	"github.com/spf13/cobra"
)

var nameCmd = &cobra.Command{
	Use:   "name <route-id> <name>...",
	Short: "Name a route",
	Long: `Set or change the display name of a route.

Examples:
  gpstrack name 3 lakefront loop
  gpstrack name 3 "morning commute"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRouteID(args[0])
		if err != nil {
			return err
		}
		name := strings.Join(args[1:], " ")
		if err := models.ValidateName(name); err != nil {
			return err
		}

		if _, err := db.GetRoute(id); err != nil {
			return fmt.Errorf("route %d not found", id)
		}
		if err := db.UpdateRouteName(id, name); err != nil {
			return fmt.Errorf("failed to rename route: %w", err)
		}

		fmt.Printf("Route %d is now '%s'\n", id, name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nameCmd)
}
