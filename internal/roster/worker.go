// Package roster keeps a rolling per-car position and speed table,
// independent of the director's single-target tracking, and detects
// configured friends in the session.
package roster

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/clock"
	"github.com/dgnsrekt/camdirector/internal/director"
	"github.com/dgnsrekt/camdirector/internal/state"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
	"github.com/dgnsrekt/camdirector/internal/worker"
)

// Entry is one car's rolling record.
type Entry struct {
	CarIdx    int       `json:"car_idx"`
	CarNumber string    `json:"car_number"`
	UserID    int       `json:"user_id"`
	TeamID    int       `json:"team_id"`
	Name      string    `json:"name"`
	PrevPct   float64   `json:"prev_pct"`
	PrevTime  time.Time `json:"prev_time"`
	CurPct    float64   `json:"cur_pct"`
	CurTime   time.Time `json:"cur_time"`
	SpeedMs   float64   `json:"speed_ms"`
	SpeedKmh  float64   `json:"speed_kmh"`
}

// Notifier is told when the friends-in-session list changes.
type Notifier interface {
	Recreate()
}

// Friends are the configured friend nicknames keyed by numeric id.
type Friends struct {
	Drivers map[int]string
	Teams   map[int]string
}

// Worker owns the roster table and the friends-in-session list.
type Worker struct {
	src      telemetry.Source
	state    *state.State
	friends  Friends
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger

	mu          sync.RWMutex
	table       map[int]*Entry
	trackLength float64
	generation  uint64
	inSession   []state.Friend
}

func NewWorker(src telemetry.Source, st *state.State, friends Friends, notifier Notifier, clk clock.Clock, logger *zap.Logger) *Worker {
	return &Worker{
		src:      src,
		state:    st,
		friends:  friends,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
		table:    make(map[int]*Entry),
	}
}

// Tick implements worker.TickFunc.
func (w *Worker) Tick(_ context.Context) worker.Result {
	if gen := w.state.Generation(); gen != w.generation {
		w.reset()
		w.generation = gen
	}

	sess := w.state.Session()
	if !sess.Connected {
		w.reset()
		return worker.OK
	}

	w.src.Freeze()
	defer w.src.Release()
	snap := w.src.Snapshot()
	if !snap.Ready() {
		return worker.OK
	}

	w.update(snap, sess.Team, w.clock.Now())
	return worker.OK
}

func (w *Worker) update(snap *telemetry.Snapshot, team bool, now time.Time) {
	length := telemetry.ParseTrackLength(snap.WeekendInfo.TrackLength)

	w.mu.Lock()
	w.trackLength = length
	var found []state.Friend
	for _, d := range snap.Roster() {
		if d.IsSpectator != 0 || d.UserID == -1 {
			continue
		}
		if team && d.TeamID == 0 {
			continue
		}

		pct, ok := snap.LapDistPct(d.CarIdx)
		if !ok {
			pct = -1
		}
		e := w.table[d.CarIdx]
		if e == nil {
			e = &Entry{CarIdx: d.CarIdx, CurPct: -1}
			w.table[d.CarIdx] = e
		}
		e.CarNumber = d.CarNumber
		e.UserID = d.UserID
		e.TeamID = d.TeamID
		e.Name = d.UserName
		advance(e, pct, now, length)

		if f, ok := w.friendFor(d, team); ok {
			found = append(found, f)
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].ID < found[j].ID })
	found = slices.CompactFunc(found, func(a, b state.Friend) bool { return a.ID == b.ID })
	changed := !slices.Equal(found, w.inSession)
	if changed {
		w.inSession = found
	}
	w.mu.Unlock()

	if changed {
		w.state.SetFriends(found)
		w.logger.Info("friends in session changed", zap.Int("count", len(found)))
		w.notifier.Recreate()
	}
}

// advance rolls the entry forward with a new sample.
func advance(e *Entry, pct float64, now time.Time, length float64) {
	if pct < 0 {
		e.CurPct = -1
		e.SpeedMs = 0
		e.SpeedKmh = 0
		return
	}
	if e.CurPct < 0 || e.CurTime.IsZero() {
		e.CurPct = pct
		e.CurTime = now
		return
	}
	e.PrevPct, e.PrevTime = e.CurPct, e.CurTime
	e.CurPct, e.CurTime = pct, now
	if length <= 0 {
		e.SpeedMs = 0
	} else {
		e.SpeedMs = director.Speed(length, e.PrevPct, e.CurPct, e.CurTime.Sub(e.PrevTime))
	}
	e.SpeedKmh = director.Kmh(e.SpeedMs)
}

func (w *Worker) friendFor(d telemetry.Driver, team bool) (state.Friend, bool) {
	if team {
		if nick, ok := w.friends.Teams[d.TeamID]; ok {
			return state.Friend{ID: d.TeamID, Nickname: nick, Team: true, CarNumber: d.CarNumber}, true
		}
		return state.Friend{}, false
	}
	if nick, ok := w.friends.Drivers[d.UserID]; ok {
		return state.Friend{ID: d.UserID, Nickname: nick, CarNumber: d.CarNumber}, true
	}
	return state.Friend{}, false
}

func (w *Worker) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.table) == 0 && w.trackLength == 0 && w.inSession == nil {
		return
	}
	w.table = make(map[int]*Entry)
	w.trackLength = 0
	w.inSession = nil
	w.logger.Debug("roster table discarded")
}

// Table returns a copy of the table ordered by car index.
func (w *Worker) Table() []Entry {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Entry, 0, len(w.table))
	for _, e := range w.table {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CarIdx < out[j].CarIdx })
	return out
}

// TrackLength returns the track length in meters seen by the last tick.
func (w *Worker) TrackLength() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.trackLength
}
