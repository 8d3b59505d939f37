// Package telemetry is the boundary to the simulator's telemetry feed. It
// exposes connection state, a consistent per-tick snapshot and the camera
// switch command. Everything behind this package is an external collaborator.
package telemetry

import (
	"regexp"
	"strconv"
	"sync"
)

// Source is the telemetry adapter contract consumed by the director workers.
type Source interface {
	// Startup attempts to attach to the feed and reports whether the source
	// is initialized. It never blocks: an attach that needs I/O may complete
	// in the background and show up on a later call. Safe to call on every
	// tick.
	Startup() bool

	// IsInitialized reports whether the transport to the feed is up.
	IsInitialized() bool

	// IsConnected reports whether the simulator itself is connected.
	IsConnected() bool

	// Freeze pins the latest snapshot so every read until the matching
	// Release sees the same tick. Calls nest across workers.
	Freeze()

	// Release undoes one Freeze.
	Release()

	// Snapshot returns the pinned snapshot, or the latest one outside a
	// Freeze. It returns nil before the first frame arrives.
	Snapshot() *Snapshot

	// SwitchCamera points the broadcast camera group at a car number.
	// Fire-and-forget: the simulator does not acknowledge it.
	SwitchCamera(carNumber string, group, mode int) error

	// Shutdown drops the transport and clears cached state.
	Shutdown()
}

// Frame is the unit the bridge sends: the simulator connection flag plus the
// snapshot taken at that moment.
type Frame struct {
	Type      string    `json:"type"`
	Connected bool      `json:"connected"`
	Data      *Snapshot `json:"data,omitempty"`
}

// FrameTypeSnapshot is the only frame type the bridge currently emits.
const FrameTypeSnapshot = "snapshot"

// Command is a camera switch request sent back to the bridge.
type Command struct {
	Type      string `json:"type"`
	CarNumber string `json:"car_number"`
	Group     int    `json:"group"`
	Mode      int    `json:"mode"`
}

// CommandCameraSwitch mirrors the simulator's cam_switch_num broadcast message.
const CommandCameraSwitch = "cam_switch_num"

var trackLengthPattern = regexp.MustCompile(`([\d.]+)\s*km`)

// ParseTrackLength converts the simulator's "<number> km" text into meters.
// Text that does not match yields 0.
func ParseTrackLength(text string) float64 {
	m := trackLengthPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	km, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	return km * 1000
}

// pinnedSnapshot implements the nested Freeze/Release bookkeeping shared by
// the sources.
type pinnedSnapshot struct {
	mu     sync.Mutex
	latest *Snapshot
	frozen *Snapshot
	depth  int
}

func (p *pinnedSnapshot) store(s *Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = s
}

func (p *pinnedSnapshot) freeze() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.depth == 0 {
		p.frozen = p.latest
	}
	p.depth++
}

func (p *pinnedSnapshot) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.depth == 0 {
		return
	}
	p.depth--
	if p.depth == 0 {
		p.frozen = nil
	}
}

func (p *pinnedSnapshot) get() *Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.depth > 0 {
		return p.frozen
	}
	return p.latest
}

func (p *pinnedSnapshot) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = nil
	p.frozen = nil
}
