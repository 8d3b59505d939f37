package telemetry

// Snapshot is one tick's read of the simulator telemetry. Field names follow
// the simulator's own session-info keys so bridge frames can be relayed as is.
// A Snapshot is never mutated after decoding; holders may keep the pointer.
type Snapshot struct {
	SessionNum       int          `json:"SessionNum"`
	SessionTime      float64      `json:"SessionTime"`
	WeekendInfo      *WeekendInfo `json:"WeekendInfo,omitempty"`
	SessionInfo      *SessionInfo `json:"SessionInfo,omitempty"`
	DriverInfo       *DriverInfo  `json:"DriverInfo,omitempty"`
	CameraInfo       *CameraInfo  `json:"CameraInfo,omitempty"`
	CarIdxLapDistPct []float64    `json:"CarIdxLapDistPct,omitempty"`
}

type WeekendInfo struct {
	SessionID        int            `json:"SessionID"`
	SubSessionID     int            `json:"SubSessionID"`
	TrackLength      string         `json:"TrackLength"`
	TrackDisplayName string         `json:"TrackDisplayName"`
	TrackCity        string         `json:"TrackCity"`
	TrackCountry     string         `json:"TrackCountry"`
	Category         string         `json:"Category"`
	TeamRacing       int            `json:"TeamRacing"`
	WeekendOptions   WeekendOptions `json:"WeekendOptions"`
}

type WeekendOptions struct {
	StandingStart int `json:"StandingStart"`
}

type SessionInfo struct {
	Sessions []SessionEntry `json:"Sessions"`
}

type SessionEntry struct {
	SessionNum  int    `json:"SessionNum"`
	SessionName string `json:"SessionName"`
	SessionType string `json:"SessionType"`
}

type DriverInfo struct {
	Drivers []Driver `json:"Drivers"`
}

// Driver is one roster entry. UserID is -1 for unset seats, TeamID is 0
// outside team sessions.
type Driver struct {
	CarIdx        int    `json:"CarIdx"`
	UserName      string `json:"UserName"`
	UserID        int    `json:"UserID"`
	TeamID        int    `json:"TeamID"`
	TeamName      string `json:"TeamName"`
	CarNumber     string `json:"CarNumber"`
	CarScreenName string `json:"CarScreenName"`
	IRating       int    `json:"IRating"`
	LicString     string `json:"LicString"`
	IsSpectator   int    `json:"IsSpectator"`
}

type CameraInfo struct {
	Groups []CameraGroup `json:"Groups"`
}

type CameraGroup struct {
	GroupNum  int    `json:"GroupNum"`
	GroupName string `json:"GroupName"`
}

// Ready reports whether the session-level blocks are populated for this tick.
func (s *Snapshot) Ready() bool {
	return s != nil && s.WeekendInfo != nil && s.SessionInfo != nil && s.DriverInfo != nil
}

// Roster returns the driver list, nil when not yet populated.
func (s *Snapshot) Roster() []Driver {
	if s == nil || s.DriverInfo == nil {
		return nil
	}
	return s.DriverInfo.Drivers
}

// LapDistPct returns the lap-distance fraction of a car index. Cars that are
// not on track report -1; indexes outside the array report ok=false.
func (s *Snapshot) LapDistPct(carIdx int) (float64, bool) {
	if s == nil || carIdx < 0 || carIdx >= len(s.CarIdxLapDistPct) {
		return 0, false
	}
	return s.CarIdxLapDistPct[carIdx], true
}

// SessionName resolves the name of the current session number.
func (s *Snapshot) SessionName() string {
	if s == nil || s.SessionInfo == nil {
		return ""
	}
	for _, entry := range s.SessionInfo.Sessions {
		if entry.SessionNum == s.SessionNum {
			return entry.SessionName
		}
	}
	return ""
}

// TeamRacing reports the weekend's team-racing setting.
func (s *Snapshot) TeamRacing() bool {
	return s != nil && s.WeekendInfo != nil && s.WeekendInfo.TeamRacing == 1
}

// CameraGroups returns the camera groups announced by the simulator.
func (s *Snapshot) CameraGroups() []CameraGroup {
	if s == nil || s.CameraInfo == nil {
		return nil
	}
	return s.CameraInfo.Groups
}

// DriverByCarIdx finds the roster entry driving a car index.
func (s *Snapshot) DriverByCarIdx(carIdx int) (Driver, bool) {
	for _, d := range s.Roster() {
		if d.CarIdx == carIdx {
			return d, true
		}
	}
	return Driver{}, false
}
