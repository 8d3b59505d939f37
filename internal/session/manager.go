// Package session detects connection and session transitions of the
// telemetry feed and keeps the session part of the shared state current.
package session

import (
	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/state"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
)

// Transition is the lifecycle event observed by one Poll.
type Transition int

const (
	None Transition = iota
	Connected
	Disconnected
	SessionChanged
)

func (t Transition) String() string {
	switch t {
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	case SessionChanged:
		return "session_changed"
	default:
		return "none"
	}
}

// Resets reports whether dependent state must be discarded.
func (t Transition) Resets() bool {
	return t != None
}

// CatalogNotifier is told when the reward catalog must be rebuilt or removed.
type CatalogNotifier interface {
	Recreate()
	Remove()
}

// Manager is the single writer of the session fields in state.State.
type Manager struct {
	state    *state.State
	notifier CatalogNotifier
	logger   *zap.Logger

	connected bool
}

func NewManager(st *state.State, notifier CatalogNotifier, logger *zap.Logger) *Manager {
	return &Manager{
		state:    st,
		notifier: notifier,
		logger:   logger,
	}
}

// Poll evaluates one tick. It never blocks: a detached source gets one
// Startup attempt per call.
func (m *Manager) Poll(src telemetry.Source, snap *telemetry.Snapshot) Transition {
	if !src.IsInitialized() {
		src.Startup()
	}

	if !src.IsInitialized() || !src.IsConnected() {
		if !m.connected {
			return None
		}
		m.connected = false
		m.state.Reset()
		src.Shutdown()
		m.notifier.Remove()
		m.logger.Info("telemetry disconnected")
		return Disconnected
	}

	// Connected but the session blocks are not populated yet
	if !snap.Ready() {
		return None
	}

	next := sessionFrom(snap)

	if !m.connected {
		m.connected = true
		m.state.BeginSession(next)
		m.state.SetCameras(cameraCatalog(snap))
		m.notifier.Recreate()
		m.logger.Info("telemetry connected",
			zap.Int("session_id", next.SessionID),
			zap.Int("sub_session_id", next.SubSessionID),
			zap.Int("session_num", next.SessionNum),
			zap.String("session_name", next.SessionName),
			zap.Float64("track_length_m", next.TrackLength),
			zap.Bool("team", next.Team),
		)
		return Connected
	}

	cur := m.state.Session()
	if !cur.SameIdentity(next) {
		m.state.BeginSession(next)
		m.state.SetCameras(cameraCatalog(snap))
		m.notifier.Recreate()
		m.logger.Info("session changed",
			zap.Int("session_id", next.SessionID),
			zap.Int("sub_session_id", next.SubSessionID),
			zap.Int("session_num", next.SessionNum),
			zap.String("session_name", next.SessionName),
			zap.Bool("team", next.Team),
		)
		return SessionChanged
	}

	if cur.TrackLength == 0 && next.TrackLength > 0 {
		m.state.SetTrackLength(next.TrackLength)
	}
	if m.state.CameraCount() < 2 {
		if groups := cameraCatalog(snap); len(groups) > len(m.state.CameraNames()) {
			m.state.SetCameras(groups)
			m.logger.Debug("camera catalog loaded", zap.Int("groups", len(groups)))
		}
	}
	return None
}

func sessionFrom(snap *telemetry.Snapshot) state.Session {
	return state.Session{
		SessionID:    snap.WeekendInfo.SessionID,
		SubSessionID: snap.WeekendInfo.SubSessionID,
		SessionNum:   snap.SessionNum,
		SessionName:  snap.SessionName(),
		Connected:    true,
		TrackLength:  telemetry.ParseTrackLength(snap.WeekendInfo.TrackLength),
		Team:         snap.TeamRacing(),
	}
}

func cameraCatalog(snap *telemetry.Snapshot) map[string]int {
	groups := snap.CameraGroups()
	out := make(map[string]int, len(groups))
	for _, g := range groups {
		out[g.GroupName] = g.GroupNum
	}
	return out
}
