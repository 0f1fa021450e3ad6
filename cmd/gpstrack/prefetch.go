// ABOUTME: Tile prefetch command
// ABOUTME: Downloads the tile neighborhood of every route into the offline cache

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/mcmeister/gpstrack/internal/tilecache"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var prefetchCmd = &cobra.Command{
	Use:   "prefetch [route-id]",
	Short: "Download map tiles for offline use",
	Long: `Download the tile neighborhood around each route's center into the
offline cache. Tiles already on disk are skipped. With a route id only
that route's area is fetched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		routes, err := db.AllRoutes()
		if err != nil {
			return fmt.Errorf("failed to list routes: %w", err)
		}
		if len(args) == 1 {
			id, err := parseRouteID(args[0])
			if err != nil {
				return err
			}
			route, err := db.GetRoute(id)
			if err != nil {
				return fmt.Errorf("route %d not found", id)
			}
			routes = routes[:0]
			routes = append(routes, route)
		}
		if len(routes) == 0 {
			fmt.Println("No routes to prefetch.")
			return nil
		}

		tiles := tilecache.New(cfg.GetDataDir(), cfg.GetTileURL(), cfg.TileAPIKey, cfg.GetHTTPTimeout(), log.New(os.Stderr))
		radius := cfg.GetTileRadius()

		bar := progressbar.Default(int64(len(routes)), "Downloading tiles")
		var fetched, skipped, failed int
		for _, route := range routes {
			res := tiles.EnsureArea(ctx, route.CenterLat, route.CenterLon, route.Zoom, radius)
			fetched += res.Fetched
			skipped += res.Skipped
			failed += res.Failed
			_ = bar.Add(1)
			if ctx.Err() != nil {
				break
			}
		}

		fmt.Printf("Fetched %d tiles (%d cached, %d failed)\n", fetched, skipped, failed)
		if failed > 0 {
			return fmt.Errorf("%d tiles could not be fetched", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(prefetchCmd)
}
