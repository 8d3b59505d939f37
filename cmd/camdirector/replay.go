package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/clock"
	"github.com/dgnsrekt/camdirector/internal/config"
	"github.com/dgnsrekt/camdirector/internal/rewards"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
	"github.com/dgnsrekt/camdirector/internal/worker"
)

// replayEvent is one camera command issued while replaying.
type replayEvent struct {
	Frame       int
	SessionTime float64
	CarNumber   string
	Camera      string
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay FILE",
		Short: "Run the director over a recorded telemetry file and print its camera commands",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Sync()

			events, err := replayRecording(cmd.Context(), cfg, args[0], logger)
			if err != nil {
				logger.Error("replay failed", zap.String("file", args[0]), zap.Error(err))
				return err
			}

			out := cmd.OutOrStdout()
			for _, e := range events {
				fmt.Fprintf(out, "frame %5d  t=%9.3fs  car #%-4s %s\n", e.Frame, e.SessionTime, e.CarNumber, e.Camera)
			}
			fmt.Fprintf(out, "%d camera commands\n", len(events))
			return nil
		},
	}
}

// replayRecording steps the director through a recording in lockstep. The
// clock follows the frames' session time, so dwells cost nothing.
func replayRecording(ctx context.Context, cfg *config.Config, path string, logger *zap.Logger) ([]replayEvent, error) {
	var validator *telemetry.FrameValidator
	if cfg.Telemetry.ValidateFrames {
		v, err := telemetry.NewFrameValidator()
		if err != nil {
			return nil, err
		}
		validator = v
	}

	src, err := telemetry.LoadReplay(path, validator)
	if err != nil {
		return nil, err
	}
	logger.Info("replaying recording", zap.String("file", path), zap.Int("frames", src.Len()))

	start := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	clk := clock.NewManual(start)
	c := buildComponents(cfg, src, rewards.NoopPublisher{}, rewards.NoopReporter{}, clk, logger)

	interval := cfg.Telemetry.TickInterval
	directorLoop := worker.New("director", interval, c.runner.Tick, logger)
	rosterLoop := worker.New("roster", interval, c.roster.Tick, logger)

	var events []replayEvent
	seen := 0
	for frame := 0; ctx.Err() == nil; frame++ {
		if err := src.Advance(); errors.Is(err, telemetry.ErrReplayFinished) {
			break
		}

		var sessionTime float64
		if snap := src.Snapshot(); snap != nil {
			sessionTime = snap.SessionTime
		}
		if at := start.Add(time.Duration(sessionTime * float64(time.Second))); at.After(clk.Now()) {
			clk.Set(at)
		} else {
			clk.Advance(interval)
		}

		// Connecting fills the catalog and disconnecting clears it, so names
		// are collected on both sides of the tick.
		names := make(map[int]string)
		for _, name := range c.state.CameraNames() {
			if g, ok := c.state.CameraGroup(name); ok {
				names[g] = name
			}
		}

		directorLoop.Once(ctx)
		rosterLoop.Once(ctx)

		for _, name := range c.state.CameraNames() {
			if g, ok := c.state.CameraGroup(name); ok {
				names[g] = name
			}
		}

		cmds := src.Commands()
		for _, cmd := range cmds[seen:] {
			events = append(events, replayEvent{
				Frame:       frame,
				SessionTime: sessionTime,
				CarNumber:   cmd.CarNumber,
				Camera:      names[cmd.Group],
			})
		}
		seen = len(cmds)
	}

	return events, nil
}
