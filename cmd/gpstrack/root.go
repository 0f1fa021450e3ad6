// ABOUTME: Root Cobra command and global flags
// ABOUTME: Sets up CLI structure, config loading, and SQLite database connection

package main

import (
	"fmt"
	"os"

	"github.com/mcmeister/gpstrack/internal/config"
	"github.com/mcmeister/gpstrack/internal/storage"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	db  *storage.SQLiteDB

	flagConfig  string
	flagDataDir string
)

var rootCmd = &cobra.Command{
	Use:   "gpstrack",
	Short: "Offline GPS route recording",
	Long: `
 ██████╗ ██████╗ ███████╗████████╗██████╗  █████╗  ██████╗██╗  ██╗
██╔════╝ ██╔══██╗██╔════╝╚══██╔══╝██╔══██╗██╔══██╗██╔════╝██║ ██╔╝
██║  ███╗██████╔╝███████╗   ██║   ██████╔╝███████║██║     █████╔╝
██║   ██║██╔═══╝ ╚════██║   ██║   ██╔══██╗██╔══██║██║     ██╔═██╗
╚██████╔╝██║     ███████║   ██║   ██║  ██║██║  ██║╚██████╗██║  ██╗
 ╚═════╝ ╚═╝     ╚══════╝   ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝ ╚═════╝╚═╝  ╚═╝

        Record GPS routes with an offline tile cache

Examples:
  gpstrack record                start the recording daemon
  gpstrack pause                 pause the active recording
  gpstrack resume                resume a paused recording
  gpstrack stop                  finish the active route
  gpstrack routes                list recorded routes
  gpstrack export 3 --format gpx --output ride.gpx`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if flagConfig != "" {
			cfg, err = config.LoadFrom(flagConfig)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}
		if flagDataDir != "" {
			cfg.DataDir = flagDataDir
		}

		if err := os.MkdirAll(cfg.GetDataDir(), 0750); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
		db, err = storage.NewSQLiteDB(cfg.DBPath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			return db.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory override")
}
