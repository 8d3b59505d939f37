// Package acquire locates the followed car in the roster and announces it
// on screen with a short confirmation maneuver.
package acquire

import (
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/camera"
	"github.com/dgnsrekt/camdirector/internal/clock"
	"github.com/dgnsrekt/camdirector/internal/state"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
)

// Options selects what to follow and how to confirm it.
type Options struct {
	DriverID      int
	TeamID        int
	ConfirmCamera string
	DefaultCamera string
	ConfirmDwell  time.Duration
}

// Acquirer is the single writer of state.Target.
type Acquirer struct {
	opts   Options
	state  *state.State
	camera *camera.Controller
	clock  clock.Clock
	logger *zap.Logger
}

func New(opts Options, st *state.State, cam *camera.Controller, clk clock.Clock, logger *zap.Logger) *Acquirer {
	return &Acquirer{
		opts:   opts,
		state:  st,
		camera: cam,
		clock:  clk,
		logger: logger,
	}
}

// FindDriver returns the first roster entry driven by driverID. Unset seats
// and spectators never match.
func FindDriver(snap *telemetry.Snapshot, driverID int) (telemetry.Driver, bool) {
	for _, d := range snap.Roster() {
		if d.UserID == -1 || d.IsSpectator != 0 {
			continue
		}
		if d.UserID == driverID {
			return d, true
		}
	}
	return telemetry.Driver{}, false
}

// FindTeam returns the first roster entry entered by teamID.
func FindTeam(snap *telemetry.Snapshot, teamID int) (telemetry.Driver, bool) {
	for _, d := range snap.Roster() {
		if d.TeamID == 0 || d.IsSpectator != 0 {
			continue
		}
		if d.TeamID == teamID {
			return d, true
		}
	}
	return telemetry.Driver{}, false
}

// Match is a roster entry selected as the target, waiting for its
// confirmation maneuver.
type Match struct {
	Driver telemetry.Driver
	ID     int
}

// Locate searches the snapshot for the configured target. It reports false
// while still searching and once a target is already held. Locate never
// blocks, so it can run while the snapshot is pinned.
func (a *Acquirer) Locate(snap *telemetry.Snapshot) (Match, bool) {
	if a.state.Target().Found {
		return Match{}, false
	}
	if len(snap.Roster()) == 0 {
		return Match{}, false
	}

	var (
		d  telemetry.Driver
		id int
		ok bool
	)
	if a.state.Session().Team && a.opts.TeamID > 0 {
		id = a.opts.TeamID
		d, ok = FindTeam(snap, id)
	} else if a.opts.DriverID > 0 {
		id = a.opts.DriverID
		d, ok = FindDriver(snap, id)
	}
	if !ok {
		return Match{}, false
	}

	a.logger.Info("target found",
		zap.Int("id", id),
		zap.Int("car_idx", d.CarIdx),
		zap.String("car", d.CarNumber),
		zap.String("driver", d.UserName),
		zap.String("team", d.TeamName),
	)
	return Match{Driver: d, ID: id}, true
}

// Confirm runs the confirmation maneuver on m and records it as the target.
// The maneuver dwell blocks the calling worker; callers must not hold a
// snapshot pin across it.
func (a *Acquirer) Confirm(m Match) {
	a.confirm(m.Driver.CarNumber)

	a.state.SetTarget(state.Target{
		CarIdx:    m.Driver.CarIdx,
		CarNumber: m.Driver.CarNumber,
		ID:        m.ID,
		Found:     true,
	})
}

func (a *Acquirer) confirm(carNumber string) {
	if _, err := a.camera.Auto(carNumber, a.opts.ConfirmCamera); err != nil {
		a.logger.Warn("confirmation camera failed", zap.Error(err))
	}
	a.clock.Dwell(a.opts.ConfirmDwell)
	if _, err := a.camera.Auto(carNumber, a.opts.DefaultCamera); err != nil {
		a.logger.Warn("default camera failed", zap.Error(err))
	}
}
