package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func checkConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Load and validate the configuration, then print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "configuration OK")
			fmt.Fprintf(out, "  telemetry:      %s\n", telemetrySummary())
			fmt.Fprintf(out, "  target:         driver %d, team %d\n", cfg.Director.DriverID, cfg.Director.TeamID)
			fmt.Fprintf(out, "  default camera: %s\n", cfg.Director.DefaultCamera)
			fmt.Fprintf(out, "  rewards:        %t (queue %s)\n", cfg.Rewards.Enabled, cfg.Rewards.QueueOrder)
			fmt.Fprintf(out, "  cameras:        %v\n", cfg.CameraNames())
			if cfg.Server.Enabled {
				fmt.Fprintf(out, "  server:         %s\n", cfg.Server.Addr)
			}
			return nil
		},
	}
}

func telemetrySummary() string {
	if cfg.Telemetry.ReplayFile != "" {
		return "replay " + cfg.Telemetry.ReplayFile
	}
	return cfg.Telemetry.URL
}
