// Package telemetrytest builds telemetry snapshots for tests.
package telemetrytest

import (
	"strconv"

	"github.com/dgnsrekt/camdirector/internal/telemetry"
)

// DefaultCameras is the camera group list used when Options.Cameras is nil.
var DefaultCameras = []string{"TV1", "Chase", "Far Chase", "Gyro", "Rear Chase", "Cockpit", "Scenic"}

// Car is one roster entry together with its lap-distance fraction.
type Car struct {
	Idx       int
	UserID    int
	TeamID    int
	Number    string
	Name      string
	Pct       float64
	Spectator bool
}

// Options describes a snapshot. Zero values give a solo race on a 5 km track.
type Options struct {
	SessionID    int
	SubSessionID int
	SessionNum   int
	SessionName  string
	TrackLength  string
	Team         bool
	Time         float64
	Cars         []Car
	Cameras      []string
}

// Snapshot builds a fully populated snapshot. Car indexes missing from Cars
// report -1 (not on track).
func Snapshot(o Options) *telemetry.Snapshot {
	if o.SessionName == "" {
		o.SessionName = "RACE"
	}
	if o.TrackLength == "" {
		o.TrackLength = "5.00 km"
	}
	if o.Cameras == nil {
		o.Cameras = DefaultCameras
	}

	team := 0
	if o.Team {
		team = 1
	}

	size := 1
	for _, c := range o.Cars {
		if c.Idx+1 > size {
			size = c.Idx + 1
		}
	}
	pct := make([]float64, size)
	for i := range pct {
		pct[i] = -1
	}

	drivers := make([]telemetry.Driver, 0, len(o.Cars))
	for _, c := range o.Cars {
		pct[c.Idx] = c.Pct
		number := c.Number
		if number == "" {
			number = strconv.Itoa(c.Idx)
		}
		spectator := 0
		if c.Spectator {
			spectator = 1
		}
		drivers = append(drivers, telemetry.Driver{
			CarIdx:      c.Idx,
			UserName:    c.Name,
			UserID:      c.UserID,
			TeamID:      c.TeamID,
			CarNumber:   number,
			IsSpectator: spectator,
		})
	}

	groups := make([]telemetry.CameraGroup, 0, len(o.Cameras))
	for i, name := range o.Cameras {
		groups = append(groups, telemetry.CameraGroup{GroupNum: i + 1, GroupName: name})
	}

	return &telemetry.Snapshot{
		SessionNum:  o.SessionNum,
		SessionTime: o.Time,
		WeekendInfo: &telemetry.WeekendInfo{
			SessionID:    o.SessionID,
			SubSessionID: o.SubSessionID,
			TrackLength:  o.TrackLength,
			TeamRacing:   team,
		},
		SessionInfo: &telemetry.SessionInfo{Sessions: []telemetry.SessionEntry{
			{SessionNum: o.SessionNum, SessionName: o.SessionName},
		}},
		DriverInfo:       &telemetry.DriverInfo{Drivers: drivers},
		CameraInfo:       &telemetry.CameraInfo{Groups: groups},
		CarIdxLapDistPct: pct,
	}
}

// Frame wraps a snapshot in a connected bridge frame.
func Frame(snap *telemetry.Snapshot) telemetry.Frame {
	return telemetry.Frame{Type: telemetry.FrameTypeSnapshot, Connected: true, Data: snap}
}

// Disconnected is a frame reporting the simulator gone.
func Disconnected() telemetry.Frame {
	return telemetry.Frame{Type: telemetry.FrameTypeSnapshot}
}

// Group returns the group number Snapshot assigns to a camera name, or 0.
func Group(cameras []string, name string) int {
	if cameras == nil {
		cameras = DefaultCameras
	}
	for i, c := range cameras {
		if c == name {
			return i + 1
		}
	}
	return 0
}
