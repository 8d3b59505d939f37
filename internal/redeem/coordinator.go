// Package redeem serves viewer redemptions: each one holds a camera
// override for a fixed time and then hands control back to the director.
package redeem

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/camera"
	"github.com/dgnsrekt/camdirector/internal/clock"
	"github.com/dgnsrekt/camdirector/internal/rewards"
	"github.com/dgnsrekt/camdirector/internal/state"
	"github.com/dgnsrekt/camdirector/internal/worker"
)

// ScenicCamera is never picked for a random camera.
const ScenicCamera = "Scenic"

// Overlay publishes the active override for the stream overlay.
type Overlay interface {
	Show(camera, user string) error
	Clear() error
}

// Options configures a Coordinator.
type Options struct {
	RandomTitle   string
	DefaultCamera string
	Duration      time.Duration
}

// Coordinator pops one request per tick and serves it.
type Coordinator struct {
	opts     Options
	queue    *Queue
	camera   *camera.Controller
	state    state.Reader
	overlay  Overlay
	reporter rewards.StatusReporter
	clock    clock.Clock
	logger   *zap.Logger

	// pick returns an index in [0, n).
	pick func(n int) int
}

func NewCoordinator(
	opts Options,
	queue *Queue,
	cam *camera.Controller,
	st state.Reader,
	overlay Overlay,
	reporter rewards.StatusReporter,
	clk clock.Clock,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		opts:     opts,
		queue:    queue,
		camera:   cam,
		state:    st,
		overlay:  overlay,
		reporter: reporter,
		clock:    clk,
		logger:   logger,
		pick:     rand.IntN,
	}
}

// Tick implements worker.TickFunc.
func (c *Coordinator) Tick(ctx context.Context) worker.Result {
	req, ok := c.queue.Pop()
	if !ok {
		return worker.OK
	}
	if err := c.Process(ctx, req); err != nil {
		return worker.Soft(fmt.Errorf("redemption %s: %w", req.RedemptionID, err))
	}
	return worker.OK
}

// Process serves one redemption. The override dwell is not cut short by
// cancellation, and the status is always reported.
func (c *Coordinator) Process(ctx context.Context, req Request) error {
	ctx = context.WithoutCancel(ctx)
	c.logger.Info("serving redemption",
		zap.String("user", req.UserName),
		zap.String("title", req.Title),
		zap.Duration("duration", c.opts.Duration),
	)

	name, car, err := c.resolve(req)
	if err != nil {
		c.report(ctx, req, rewards.StatusCanceled)
		return err
	}

	if err := c.camera.BeginOverride(req.UserName, req.Title); err != nil {
		c.report(ctx, req, rewards.StatusCanceled)
		return err
	}

	if err := c.overlay.Show(name, req.UserName); err != nil {
		c.logger.Warn("overlay update failed", zap.Error(err))
	}

	status := rewards.StatusFulfilled
	if err = c.camera.OverrideSwitch(car, name); err != nil {
		status = rewards.StatusCanceled
	} else {
		c.clock.Dwell(c.opts.Duration)
	}

	if clearErr := c.overlay.Clear(); clearErr != nil {
		c.logger.Warn("overlay clear failed", zap.Error(clearErr))
	}
	c.camera.EndOverride()
	c.report(ctx, req, status)

	c.logger.Info("redemption done",
		zap.String("user", req.UserName),
		zap.String("camera", name),
		zap.String("status", string(status)),
	)
	return err
}

// resolve maps the reward title to a camera and the car to show.
func (c *Coordinator) resolve(req Request) (string, string, error) {
	for _, f := range c.state.Friends() {
		if f.Nickname == req.Title {
			return c.opts.DefaultCamera, f.CarNumber, nil
		}
	}

	target := c.state.Target()
	if !target.Found {
		return "", "", ErrNoTarget
	}

	if req.Title == c.opts.RandomTitle {
		name, err := c.randomCamera()
		return name, target.CarNumber, err
	}

	if _, ok := c.state.CameraGroup(req.Title); !ok {
		return "", "", fmt.Errorf("%w: %s", camera.ErrUnknownCamera, req.Title)
	}
	return req.Title, target.CarNumber, nil
}

// randomCamera draws uniformly from the catalog minus the default and the
// scenic camera.
func (c *Coordinator) randomCamera() (string, error) {
	var candidates []string
	for _, name := range c.state.CameraNames() {
		if name == c.opts.DefaultCamera || name == ScenicCamera {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", ErrNoCandidate
	}
	return candidates[c.pick(len(candidates))], nil
}

func (c *Coordinator) report(ctx context.Context, req Request, status rewards.Status) {
	if err := c.reporter.UpdateStatus(ctx, req.BroadcasterID, req.RewardID, req.RedemptionID, status); err != nil {
		c.logger.Error("redemption status update failed",
			zap.String("redemption_id", req.RedemptionID),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}
