// ABOUTME: Daemon control commands: pause, resume, stop, status
// ABOUTME: Sends JSON commands to the record daemon over its unix socket

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/mcmeister/gpstrack/internal/control"
	"github.com/mcmeister/gpstrack/internal/ui"
	"github.com/spf13/cobra"
)

func sendCommand(command string) (*control.Response, error) {
	resp, err := control.Send(cfg.GetControlSocket(), command)
	if err != nil {
		return nil, err
	}
	if !resp.OK {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}

var pauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the active recording",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := sendCommand(control.CommandPause)
		if err != nil {
			return err
		}
		fmt.Printf("Paused route %d (%d points so far)\n", resp.RouteID, resp.Points)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused recording",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := sendCommand(control.CommandResume)
		if err != nil {
			return err
		}
		fmt.Printf("Resumed route %d\n", resp.RouteID)
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Finish the active route",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := sendCommand(control.CommandStop)
		if err != nil {
			return err
		}
		fmt.Printf("Finished route %d: %s, %d points\n",
			resp.RouteID, ui.FormatDistance(resp.DistanceKm), resp.Points)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon recording state",
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := sendCommand(control.CommandStatus)
		if err != nil {
			return err
		}

		switch resp.State {
		case "recording":
			fmt.Printf("%s route %d - %s, %d points\n",
				color.GreenString("Recording"), resp.RouteID,
				ui.FormatDistance(resp.DistanceKm), resp.Points)
		case "paused":
			fmt.Printf("%s route %d - %s, %d points\n",
				color.YellowString("Paused"), resp.RouteID,
				ui.FormatDistance(resp.DistanceKm), resp.Points)
		default:
			fmt.Println("Idle")
			if resp.RouteID != 0 {
				fmt.Printf("Last route: %d - %s, %d points\n",
					resp.RouteID, ui.FormatDistance(resp.DistanceKm), resp.Points)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
}
