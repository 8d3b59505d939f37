package session

import (
	"testing"

	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/state"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
	tt "github.com/dgnsrekt/camdirector/internal/telemetry/telemetrytest"
)

type mockNotifier struct {
	recreated int
	removed   int
}

func (m *mockNotifier) Recreate() { m.recreated++ }
func (m *mockNotifier) Remove()   { m.removed++ }

func poll(t *testing.T, m *Manager, src *telemetry.ReplaySource) Transition {
	t.Helper()
	src.Freeze()
	defer src.Release()
	return m.Poll(src, src.Snapshot())
}

func raceFrame(sessionID, sessionNum int, team bool) telemetry.Frame {
	return tt.Frame(tt.Snapshot(tt.Options{
		SessionID:    sessionID,
		SubSessionID: 900,
		SessionNum:   sessionNum,
		Team:         team,
		Cars:         []tt.Car{{Idx: 3, UserID: 42, Number: "7", Pct: 0.5}},
	}))
}

func TestPollLifecycle(t *testing.T) {
	src := telemetry.NewReplaySource([]telemetry.Frame{
		tt.Disconnected(),
		raceFrame(100, 0, false),
		raceFrame(100, 0, false),
		raceFrame(100, 1, true),
		tt.Disconnected(),
	})
	st := state.New()
	notifier := &mockNotifier{}
	m := NewManager(st, notifier, zap.NewNop())

	want := []Transition{None, Connected, None, SessionChanged, Disconnected}
	for i, w := range want {
		if err := src.Advance(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
		if got := poll(t, m, src); got != w {
			t.Fatalf("frame %d: expected %s, got %s", i, w, got)
		}

		switch w {
		case Connected:
			sess := st.Session()
			if !sess.Connected || sess.SessionID != 100 || sess.TrackLength != 5000 {
				t.Errorf("unexpected session after connect: %+v", sess)
			}
			if st.CameraCount() != len(tt.DefaultCameras) {
				t.Errorf("expected camera catalog to load, got %d groups", st.CameraCount())
			}
		case SessionChanged:
			if !st.Session().Team {
				t.Error("expected team flag to re-derive from weekend info")
			}
			if st.Target().Found {
				t.Error("expected acquisition to be searching")
			}
		case Disconnected:
			if st.Session() != (state.Session{}) || st.CameraCount() != 0 {
				t.Errorf("expected state reset, got %+v", st.Session())
			}
		}
	}

	if notifier.recreated != 2 || notifier.removed != 1 {
		t.Errorf("expected 2 recreate and 1 remove, got %d and %d", notifier.recreated, notifier.removed)
	}
}

func TestPollClearsTargetOnSessionChange(t *testing.T) {
	src := telemetry.NewReplaySource([]telemetry.Frame{
		raceFrame(100, 0, false),
		raceFrame(101, 0, false),
	})
	st := state.New()
	m := NewManager(st, &mockNotifier{}, zap.NewNop())

	src.Advance()
	poll(t, m, src)
	st.SetTarget(state.Target{CarIdx: 3, CarNumber: "7", ID: 42, Found: true})
	gen := st.Generation()

	src.Advance()
	if got := poll(t, m, src); got != SessionChanged {
		t.Fatalf("expected SessionChanged, got %s", got)
	}
	if st.Target().Found {
		t.Error("expected target to be cleared")
	}
	if st.Generation() == gen {
		t.Error("expected generation to change")
	}
}

func TestPollRetriesStartup(t *testing.T) {
	src := telemetry.NewReplaySource([]telemetry.Frame{raceFrame(100, 0, false)})
	src.SetUnavailable(true)
	src.Advance()

	m := NewManager(state.New(), &mockNotifier{}, zap.NewNop())
	if got := poll(t, m, src); got != None {
		t.Fatalf("expected None while adapter unavailable, got %s", got)
	}

	src.SetUnavailable(false)
	if got := poll(t, m, src); got != Connected {
		t.Fatalf("expected Connected once adapter starts, got %s", got)
	}
}

func TestPollWaitsForSessionInfo(t *testing.T) {
	partial := tt.Snapshot(tt.Options{SessionID: 5})
	partial.DriverInfo = nil
	src := telemetry.NewReplaySource([]telemetry.Frame{tt.Frame(partial)})
	src.Advance()

	m := NewManager(state.New(), &mockNotifier{}, zap.NewNop())
	if got := poll(t, m, src); got != None {
		t.Fatalf("expected None until roster is populated, got %s", got)
	}
}

func TestTrackLengthSelfHeals(t *testing.T) {
	bad := tt.Snapshot(tt.Options{SessionID: 5, TrackLength: "unknown"})
	good := tt.Snapshot(tt.Options{SessionID: 5, TrackLength: "3.20 km"})
	src := telemetry.NewReplaySource([]telemetry.Frame{tt.Frame(bad), tt.Frame(good)})
	st := state.New()
	m := NewManager(st, &mockNotifier{}, zap.NewNop())

	src.Advance()
	poll(t, m, src)
	if st.Session().TrackLength != 0 {
		t.Fatalf("expected zero length on parse failure, got %v", st.Session().TrackLength)
	}

	src.Advance()
	poll(t, m, src)
	if st.Session().TrackLength != 3200 {
		t.Errorf("expected 3200m, got %v", st.Session().TrackLength)
	}
}
