package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/acquire"
	"github.com/dgnsrekt/camdirector/internal/camera"
	"github.com/dgnsrekt/camdirector/internal/clock"
	"github.com/dgnsrekt/camdirector/internal/config"
	"github.com/dgnsrekt/camdirector/internal/director"
	"github.com/dgnsrekt/camdirector/internal/overlay"
	"github.com/dgnsrekt/camdirector/internal/redeem"
	"github.com/dgnsrekt/camdirector/internal/rewards"
	"github.com/dgnsrekt/camdirector/internal/roster"
	"github.com/dgnsrekt/camdirector/internal/session"
	"github.com/dgnsrekt/camdirector/internal/state"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
)

// components is every long-lived piece of the director, wired against one
// telemetry source and one clock.
type components struct {
	state       *state.State
	camera      *camera.Controller
	runner      *director.Runner
	roster      *roster.Worker
	queue       *redeem.Queue
	coordinator *redeem.Coordinator
	monitor     *redeem.Monitor
	catalog     *rewards.CatalogSyncer
}

func buildComponents(
	cfg *config.Config,
	src telemetry.Source,
	publisher rewards.Publisher,
	reporter rewards.StatusReporter,
	clk clock.Clock,
	logger *zap.Logger,
) *components {
	st := state.New()
	cam := camera.NewController(src, st, logger.Named("camera"))

	catalog := rewards.NewCatalogSyncer(rewards.CatalogOptions{
		Prompt:            cfg.Rewards.PromptMarker,
		Cameras:           catalogEntries(cfg.Cameras),
		RandomTitle:       cfg.Rewards.RandomCameraTitle,
		RandomCost:        cfg.Rewards.RandomCameraCost,
		FriendCost:        cfg.Friends.Cost,
		FriendCooldownSec: cfg.Friends.CooldownSec,
	}, st, publisher, logger.Named("catalog"))

	sm := session.NewManager(st, catalog, logger.Named("session"))
	acq := acquire.New(acquire.Options{
		DriverID:      cfg.Director.DriverID,
		TeamID:        cfg.Director.TeamID,
		ConfirmCamera: cfg.Director.ConfirmCamera,
		DefaultCamera: cfg.Director.DefaultCamera,
		ConfirmDwell:  cfg.Director.ConfirmDwell,
	}, st, cam, clk, logger.Named("acquire"))
	dir := director.New(director.Options{
		DefaultCamera:   cfg.Director.DefaultCamera,
		QualifyingChase: cfg.Director.QualifyingChase,
		SwitchDwell:     cfg.Director.SwitchDwell,
		SlowSpeedKmh:    float64(cfg.Director.SlowSpeedKmh),
	}, st, cam, clk, logger.Named("director"))
	runner := director.NewRunner(src, sm, acq, dir, cam, st, logger.Named("runner"))

	var friends roster.Friends
	if cfg.Friends.Enabled {
		friends = roster.Friends{
			Drivers: cfg.Friends.DriverFriends(),
			Teams:   cfg.Friends.TeamFriends(),
		}
	}
	rst := roster.NewWorker(src, st, friends, catalog, clk, logger.Named("roster"))

	queue := redeem.NewQueue(cfg.Rewards.QueueOrder)
	ov := overlay.NewWriter(cfg.Overlay.Directory, cfg.Overlay.CameraFile, cfg.Overlay.UserFile)
	coord := redeem.NewCoordinator(redeem.Options{
		RandomTitle:   cfg.Rewards.RandomCameraTitle,
		DefaultCamera: cfg.Director.DefaultCamera,
		Duration:      cfg.Rewards.CameraSwitchDuration,
	}, queue, cam, st, ov, reporter, clk, logger.Named("redeem"))

	return &components{
		state:       st,
		camera:      cam,
		runner:      runner,
		roster:      rst,
		queue:       queue,
		coordinator: coord,
		monitor:     redeem.NewMonitor(queue, logger.Named("queue")),
		catalog:     catalog,
	}
}

func catalogEntries(cams []config.CameraReward) []rewards.Entry {
	entries := make([]rewards.Entry, 0, len(cams))
	for _, c := range cams {
		entries = append(entries, rewards.Entry{
			Title:           c.Name,
			Cost:            c.Cost,
			CooldownEnabled: c.CooldownEnabled,
			CooldownSec:     c.CooldownSec,
		})
	}
	return entries
}

func helixOptions(cfg *config.Config) rewards.HelixOptions {
	return rewards.HelixOptions{
		BaseURL:       cfg.Rewards.BaseURL,
		ClientID:      cfg.Rewards.ClientID,
		AccessToken:   cfg.Rewards.AccessToken,
		RatePerSecond: cfg.Rewards.RatePerSecond,
		Timeout:       time.Duration(cfg.Rewards.TimeoutSec) * time.Second,
		RetryCount:    cfg.Rewards.RetryCount,
		RetryDelay:    time.Duration(cfg.Rewards.RetryDelay) * time.Second,
	}
}
