// Package director picks the broadcast camera for the followed car from the
// relative positions of the cars around it.
package director

import (
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/camera"
	"github.com/dgnsrekt/camdirector/internal/clock"
	"github.com/dgnsrekt/camdirector/internal/state"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
)

// Options are the director's tunables.
type Options struct {
	DefaultCamera   string
	QualifyingChase bool
	SwitchDwell     time.Duration
	SlowSpeedKmh    float64
}

// Director applies Decide once per tick. Its trackers are owned by the
// director loop alone.
type Director struct {
	opts   Options
	state  state.Reader
	camera *camera.Controller
	clock  clock.Clock
	logger *zap.Logger

	trackers Trackers
	last     Decision
}

func New(opts Options, st state.Reader, cam *camera.Controller, clk clock.Clock, logger *zap.Logger) *Director {
	return &Director{
		opts:   opts,
		state:  st,
		camera: cam,
		clock:  clk,
		logger: logger,
	}
}

// Tick runs one decision for the acquired target. Trackers advance on every
// call, including while an override holds the camera.
func (d *Director) Tick(snap *telemetry.Snapshot) error {
	target := d.state.Target()
	if !target.Found || snap == nil {
		return nil
	}

	sess := d.state.Session()
	pct, ok := snap.LapDistPct(target.CarIdx)
	if !ok {
		pct = -1
	}

	dec := Decide(Input{
		Now:         d.clock.Now(),
		TrackLength: sess.TrackLength,
		Followed: Car{
			Idx:    target.CarIdx,
			Number: target.CarNumber,
			Pct:    pct,
		},
		Cars:          carsFrom(snap),
		Trackers:      d.trackers,
		Qualifying:    d.opts.QualifyingChase && sess.Qualifying(),
		DefaultCamera: d.opts.DefaultCamera,
		SwitchDwell:   d.opts.SwitchDwell,
		SlowSpeedKmh:  d.opts.SlowSpeedKmh,
	})
	d.trackers = dec.Trackers
	d.last = dec

	if !dec.Decided {
		return nil
	}

	switched, err := d.camera.Auto(dec.CarNumber, dec.Camera)
	if err != nil {
		return err
	}
	if switched {
		d.logger.Debug("camera decision",
			zap.String("camera", dec.Camera),
			zap.String("car", dec.CarNumber),
			zap.Float64("speed_kmh", dec.SpeedKmh),
			zap.Int("ahead", dec.Ahead),
			zap.Int("behind", dec.Behind),
		)
	}
	return nil
}

// Reset drops the camera history after a session transition.
func (d *Director) Reset() {
	d.trackers = Trackers{}
	d.last = Decision{}
}

// Trackers returns the trackers carried into the next tick.
func (d *Director) Trackers() Trackers {
	return d.trackers
}

// Last returns the most recent decision.
func (d *Director) Last() Decision {
	return d.last
}

func carsFrom(snap *telemetry.Snapshot) []Car {
	numbers := make(map[int]string, len(snap.Roster()))
	for _, drv := range snap.Roster() {
		numbers[drv.CarIdx] = drv.CarNumber
	}
	cars := make([]Car, 0, len(snap.CarIdxLapDistPct))
	for idx, pct := range snap.CarIdxLapDistPct {
		cars = append(cars, Car{Idx: idx, Number: numbers[idx], Pct: pct})
	}
	return cars
}
