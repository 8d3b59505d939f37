package director

import (
	"context"

	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/acquire"
	"github.com/dgnsrekt/camdirector/internal/camera"
	"github.com/dgnsrekt/camdirector/internal/session"
	"github.com/dgnsrekt/camdirector/internal/state"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
	"github.com/dgnsrekt/camdirector/internal/worker"
)

// Runner is the combined session, acquisition and decision tick. Within one
// tick transition detection runs first, then acquisition, then the decision.
type Runner struct {
	src      telemetry.Source
	session  *session.Manager
	acquirer *acquire.Acquirer
	director *Director
	camera   *camera.Controller
	state    *state.State
	logger   *zap.Logger
}

func NewRunner(
	src telemetry.Source,
	sm *session.Manager,
	acq *acquire.Acquirer,
	dir *Director,
	cam *camera.Controller,
	st *state.State,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		src:      src,
		session:  sm,
		acquirer: acq,
		director: dir,
		camera:   cam,
		state:    st,
		logger:   logger,
	}
}

// Tick implements worker.TickFunc. The snapshot is pinned only for the
// non-blocking part of the tick; a confirmation maneuver runs after the pin
// is released so other workers keep seeing fresh frames during its dwell.
func (r *Runner) Tick(_ context.Context) worker.Result {
	match, confirm, err := r.pinned()
	if err != nil {
		return worker.Soft(err)
	}
	if confirm {
		r.acquirer.Confirm(match)
	}
	return worker.OK
}

// pinned runs session tracking, target search and the camera decision on one
// frozen snapshot. It reports a match that still needs confirming.
func (r *Runner) pinned() (acquire.Match, bool, error) {
	r.src.Freeze()
	defer r.src.Release()
	snap := r.src.Snapshot()

	if tr := r.session.Poll(r.src, snap); tr.Resets() {
		r.director.Reset()
		r.camera.Reset()
		r.logger.Debug("director state reset", zap.Stringer("transition", tr))
	}

	if !r.state.Session().Connected {
		return acquire.Match{}, false, nil
	}
	if !r.state.Target().Found {
		m, ok := r.acquirer.Locate(snap)
		return m, ok, nil
	}
	return acquire.Match{}, false, r.director.Tick(snap)
}
