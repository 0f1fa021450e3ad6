// ABOUTME: Recording daemon command
// ABOUTME: Wires sampler, tile cache, connectivity, coordinator, and control socket

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mcmeister/gpstrack/internal/connectivity"
	"github.com/mcmeister/gpstrack/internal/control"
	"github.com/mcmeister/gpstrack/internal/recorder"
	"github.com/mcmeister/gpstrack/internal/sampler"
	"github.com/mcmeister/gpstrack/internal/snapshot"
	"github.com/mcmeister/gpstrack/internal/tilecache"
	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Start the recording daemon",
	Long: `Start the recording daemon in the foreground.

A new route begins as soon as the first GPS fix arrives. If a previous run
was interrupted mid-route, that route is picked up and recording continues
into it. The daemon exits when the route is stopped (gpstrack stop) or on
SIGINT/SIGTERM, in which case the route stays open for the next run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "gpstrack",
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		src, err := newSource()
		if err != nil {
			return err
		}
		if err := src.Start(ctx); err != nil {
			return fmt.Errorf("failed to start location source: %w", err)
		}
		defer src.Close()

		tiles := tilecache.New(cfg.GetDataDir(), cfg.GetTileURL(), cfg.TileAPIKey, cfg.GetHTTPTimeout(), logger)
		monitor := connectivity.NewMonitor(cfg.ProbeAddr(), cfg.GetProbeInterval(), cfg.GetHTTPTimeout(), logger)
		monitor.Start(ctx)
		snapshots := snapshot.NewGenerator(tiles, cfg.SnapshotsDir(), cfg.GetTileRadius(), logger)

		coord, err := recorder.New(ctx, db, src, recorder.Options{
			Tiles:      tiles,
			Net:        monitor,
			Snapshots:  snapshots,
			Zoom:       cfg.GetZoom(),
			Width:      cfg.GetSnapshotWidth(),
			Height:     cfg.GetSnapshotHeight(),
			TileRadius: cfg.GetTileRadius(),
			Logger:     logger,
		})
		if err != nil {
			return err
		}
		defer coord.Close()

		ctrl := control.NewServer(coord, db, cfg.GetControlSocket(), logger)
		go func() {
			if err := ctrl.Serve(ctx); err != nil {
				logger.Error("control server", "err", err)
			}
		}()

		// Refresh the cache for every known route now and again whenever
		// connectivity comes back.
		go coord.PrefetchAll(ctx)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-monitor.BecameOnline():
					logger.Info("network restored, refreshing tile cache")
					coord.PrefetchAll(ctx)
				}
			}
		}()

		if coord.State() == recorder.StateIdle {
			fixTimeout, _ := cmd.Flags().GetDuration("fix-timeout")
			if err := startWhenFixed(ctx, coord, fixTimeout, sigCh, logger); err != nil {
				return err
			}
		}

		for {
			select {
			case <-sigCh:
				logger.Info("shutting down, route stays open for recovery")
				return nil
			case ev := <-coord.Events():
				switch ev.Kind {
				case recorder.EventRouteStarted:
					logger.Info("route started", "route", ev.RouteID)
				case recorder.EventSnapshotReady:
					logger.Info("snapshot ready", "route", ev.RouteID, "path", ev.Message)
				case recorder.EventSnapshotFailed:
					logger.Warn("snapshot failed", "route", ev.RouteID, "err", ev.Message)
				case recorder.EventRouteFinalized:
					logger.Info("route finished", "route", ev.RouteID)
					return nil
				}
			}
		}
	},
}

// startWhenFixed polls for the first GPS fix and starts a route with it.
func startWhenFixed(ctx context.Context, coord *recorder.Coordinator, timeout time.Duration, sigCh <-chan os.Signal, logger *log.Logger) error {
	logger.Info("waiting for GPS fix")
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(500 * time.Millisecond)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-sigCh:
			return nil
		case <-deadline.C:
			return fmt.Errorf("no GPS fix within %s", timeout)
		case <-tick.C:
			route, err := coord.StartRecording(ctx)
			if err != nil {
				if errors.Is(err, recorder.ErrNoFix) {
					continue
				}
				return err
			}
			logger.Info("recording", "route", route.ID, "lat", route.CenterLat, "lon", route.CenterLon)
			return nil
		}
	}
}

// newSource builds the configured location source.
func newSource() (sampler.Source, error) {
	switch cfg.GetSource() {
	case "gpsd":
		return sampler.NewGPSD(cfg.GetGPSDAddr(), cfg.GetSampleInterval(), log.Default()), nil
	case "replay":
		if cfg.ReplayFile == "" {
			return nil, fmt.Errorf("replay source requires replay_file in config")
		}
		return sampler.NewReplay(cfg.ReplayFile, cfg.GetSampleInterval())
	default:
		return nil, fmt.Errorf("unknown source: %s (use 'gpsd' or 'replay')", cfg.GetSource())
	}
}

func init() {
	recordCmd.Flags().Duration("fix-timeout", time.Minute, "how long to wait for the first GPS fix")
	rootCmd.AddCommand(recordCmd)
}
