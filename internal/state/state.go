// Package state holds the director-state aggregate shared by the workers.
//
// Each part has a single writer: the session manager owns Session, the
// camera catalog and the generation counter, target acquisition owns Target,
// and the snapshot worker owns the friends-in-session list. Other workers
// take the read-only Reader view.
package state

import (
	"sort"
	"sync"
)

// QualifyingSession is the session name the simulator uses for qualifying.
const QualifyingSession = "QUALIFY"

// Session mirrors the identifiers of the session being broadcast.
type Session struct {
	SessionID    int     `json:"session_id"`
	SubSessionID int     `json:"sub_session_id"`
	SessionNum   int     `json:"session_num"`
	SessionName  string  `json:"session_name"`
	Connected    bool    `json:"connected"`
	TrackLength  float64 `json:"track_length_m"`
	Team         bool    `json:"team"`
}

// Qualifying reports whether the session is a qualifying session.
func (s Session) Qualifying() bool {
	return s.SessionName == QualifyingSession
}

// SameIdentity reports whether o names the same session.
func (s Session) SameIdentity(o Session) bool {
	return s.SessionID == o.SessionID && s.SubSessionID == o.SubSessionID && s.SessionNum == o.SessionNum
}

// Target is the car the director follows. The zero value means searching.
type Target struct {
	CarIdx    int    `json:"car_idx"`
	CarNumber string `json:"car_number"`
	ID        int    `json:"id"`
	Found     bool   `json:"found"`
}

// Friend is a configured driver or team present in the session.
type Friend struct {
	ID        int    `json:"id"`
	Nickname  string `json:"nickname"`
	Team      bool   `json:"team"`
	CarNumber string `json:"car_number"`
}

// Reader is the read-only view handed to workers that do not own a field.
type Reader interface {
	Session() Session
	Target() Target
	Generation() uint64
	CameraGroup(name string) (int, bool)
	CameraNames() []string
	Friends() []Friend
}

// State is the shared aggregate.
type State struct {
	mu         sync.RWMutex
	session    Session
	target     Target
	generation uint64
	cameras    map[string]int
	friends    []Friend
}

// New creates an empty, disconnected aggregate.
func New() *State {
	return &State{cameras: make(map[string]int)}
}

func (s *State) Session() Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

func (s *State) Target() Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// Generation changes on every session transition. Workers keeping derived
// state compare it to detect that their state is stale.
func (s *State) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// CameraGroup resolves a camera name to the simulator's group number.
func (s *State) CameraGroup(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.cameras[name]
	return g, ok
}

// CameraNames returns the known camera names sorted by group number.
func (s *State) CameraNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.cameras))
	for name := range s.cameras {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		gi, gj := s.cameras[names[i]], s.cameras[names[j]]
		if gi != gj {
			return gi < gj
		}
		return names[i] < names[j]
	})
	return names
}

// CameraCount returns how many camera groups are known.
func (s *State) CameraCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cameras)
}

func (s *State) Friends() []Friend {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Friend, len(s.friends))
	copy(out, s.friends)
	return out
}

// BeginSession stores a new session identity, clears the target and bumps
// the generation.
func (s *State) BeginSession(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = sess
	s.target = Target{}
	s.friends = nil
	s.generation++
}

// Reset returns the aggregate to the disconnected state and bumps the
// generation.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = Session{}
	s.target = Target{}
	s.cameras = make(map[string]int)
	s.friends = nil
	s.generation++
}

// SetTrackLength updates the track length in meters.
func (s *State) SetTrackLength(meters float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.TrackLength = meters
}

// SetCameras replaces the camera catalog.
func (s *State) SetCameras(groups map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cameras = make(map[string]int, len(groups))
	for name, g := range groups {
		s.cameras[name] = g
	}
}

func (s *State) SetTarget(t Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = t
}

// ClearTarget puts acquisition back into searching.
func (s *State) ClearTarget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.target = Target{}
}

// SetFriends replaces the friends-in-session list.
func (s *State) SetFriends(friends []Friend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.friends = append([]Friend(nil), friends...)
}
