package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dgnsrekt/camdirector/internal/clock"
	"github.com/dgnsrekt/camdirector/internal/rewards"
	"github.com/dgnsrekt/camdirector/internal/server"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
	"github.com/dgnsrekt/camdirector/internal/worker"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Direct the camera from the live telemetry bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer logger.Sync()
			return runDirector(cmd.Context())
		},
	}
}

func newSource() (telemetry.Source, error) {
	var validator *telemetry.FrameValidator
	if cfg.Telemetry.ValidateFrames {
		v, err := telemetry.NewFrameValidator()
		if err != nil {
			return nil, err
		}
		validator = v
	}

	if cfg.Telemetry.ReplayFile != "" {
		replay, err := telemetry.LoadReplay(cfg.Telemetry.ReplayFile, validator)
		if err != nil {
			return nil, fmt.Errorf("loading replay: %w", err)
		}
		return replay, nil
	}

	return telemetry.NewBridgeSource(telemetry.BridgeOptions{
		URL:              cfg.Telemetry.URL,
		HandshakeTimeout: cfg.Telemetry.HandshakeTimeout,
		Validator:        validator,
	}, logger.Named("bridge"))
}

func runDirector(ctx context.Context) error {
	logger.Info("configuration loaded",
		zap.String("telemetry", cfg.Telemetry.URL),
		zap.String("replay", cfg.Telemetry.ReplayFile),
		zap.Int("driverID", cfg.Director.DriverID),
		zap.Int("teamID", cfg.Director.TeamID),
		zap.String("defaultCamera", cfg.Director.DefaultCamera),
		zap.Bool("rewards", cfg.Rewards.Enabled),
		zap.String("queueOrder", cfg.Rewards.QueueOrder),
	)

	src, err := newSource()
	if err != nil {
		logger.Error("failed to create telemetry source", zap.Error(err))
		return err
	}
	defer src.Shutdown()

	timeout := time.Duration(cfg.Rewards.TimeoutSec) * time.Second
	publisher := rewards.NewPublisher(cfg.Rewards.Enabled, cfg.Rewards.CatalogWebhook, cfg.Rewards.AccessToken, timeout, logger.Named("catalog"))
	reporter := rewards.NewReporter(cfg.Rewards.Enabled, helixOptions(cfg), logger.Named("helix"))

	c := buildComponents(cfg, src, publisher, reporter, clock.Real{}, logger)

	interval := cfg.Telemetry.TickInterval
	loops := []*worker.Loop{
		worker.New("director", interval, advanceThen(src, c.runner.Tick), logger),
		worker.New("roster", interval, c.roster.Tick, logger),
		worker.New("redeem", interval, c.coordinator.Tick, logger),
		worker.New("queue-monitor", interval, c.monitor.Tick, logger),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range loops {
		g.Go(func() error { return l.Run(gctx) })
	}
	g.Go(func() error {
		c.catalog.Run(gctx)
		return nil
	})

	if cfg.Server.Enabled {
		handlers, err := server.NewHandlers(server.Options{
			PromptMarker:  cfg.Rewards.PromptMarker,
			BroadcasterID: cfg.Rewards.BroadcasterID,
		}, c.queue, c.state, c.camera, src, c.roster, logger.Named("http"))
		if err != nil {
			logger.Error("failed to create handlers", zap.Error(err))
			return err
		}

		httpServer := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      server.NewRouter(handlers, logger.Named("http")),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		}

		g.Go(func() error {
			logger.Info("starting server", zap.String("addr", httpServer.Addr))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	logger.Info("director running", zap.Duration("interval", interval))
	err = g.Wait()
	if errors.Is(err, telemetry.ErrReplayFinished) {
		logger.Info("replay finished")
		err = nil
	}

	// Drop the director's rewards on the way out
	c.catalog.Remove()
	flushCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	c.catalog.Flush(flushCtx)

	if err != nil {
		logger.Error("director stopped with error", zap.Error(err))
		return err
	}
	logger.Info("director stopped")
	return nil
}

type advancer interface {
	Advance() error
}

// advanceThen steps a replay source one frame per tick. Live sources are
// passed through.
func advanceThen(src telemetry.Source, tick worker.TickFunc) worker.TickFunc {
	adv, ok := src.(advancer)
	if !ok {
		return tick
	}
	return func(ctx context.Context) worker.Result {
		if err := adv.Advance(); errors.Is(err, telemetry.ErrReplayFinished) {
			return worker.Fatal(err)
		}
		return tick(ctx)
	}
}
