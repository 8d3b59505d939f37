package redeem

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/dgnsrekt/camdirector/internal/camera"
	"github.com/dgnsrekt/camdirector/internal/clock"
	"github.com/dgnsrekt/camdirector/internal/rewards"
	"github.com/dgnsrekt/camdirector/internal/state"
	"github.com/dgnsrekt/camdirector/internal/telemetry"
)

type statusCall struct {
	redemptionID string
	status       rewards.Status
}

type mockReporter struct {
	calls []statusCall
	err   error
}

func (m *mockReporter) UpdateStatus(_ context.Context, _, _, redemptionID string, status rewards.Status) error {
	m.calls = append(m.calls, statusCall{redemptionID: redemptionID, status: status})
	return m.err
}

type overlayCall struct {
	camera, user string
}

type mockOverlay struct {
	calls []overlayCall
}

func (m *mockOverlay) Show(camera, user string) error {
	m.calls = append(m.calls, overlayCall{camera, user})
	return nil
}

func (m *mockOverlay) Clear() error { return m.Show("", "") }

// observingClock checks the override flag while the dwell is running.
type observingClock struct {
	*clock.Manual
	cam         *camera.Controller
	sawOverride bool
}

func (o *observingClock) Dwell(d time.Duration) {
	o.sawOverride = o.cam.State().Override
	o.Manual.Dwell(d)
}

type coordFixture struct {
	coord    *Coordinator
	queue    *Queue
	cam      *camera.Controller
	st       *state.State
	src      *telemetry.ReplaySource
	reporter *mockReporter
	overlay  *mockOverlay
	clock    *observingClock
}

var cameras = map[string]int{"TV1": 1, "Chase": 2, "Gyro": 3, "Cockpit": 4, "Scenic": 5}

func newCoordFixture(t *testing.T, groups map[string]int) *coordFixture {
	t.Helper()
	st := state.New()
	st.BeginSession(state.Session{SessionID: 1, Connected: true})
	st.SetCameras(groups)
	st.SetTarget(state.Target{CarIdx: 3, CarNumber: "7", ID: 42, Found: true})

	src := telemetry.NewReplaySource(nil)
	src.Startup()
	cam := camera.NewController(src, st, zap.NewNop())
	clk := &observingClock{Manual: clock.NewManual(time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)), cam: cam}
	queue := NewQueue(OrderLIFO)
	reporter := &mockReporter{}
	overlay := &mockOverlay{}

	coord := NewCoordinator(Options{
		RandomTitle:   "Random Camera",
		DefaultCamera: "TV1",
		Duration:      30 * time.Second,
	}, queue, cam, st, overlay, reporter, clk, zap.NewNop())

	return &coordFixture{
		coord:    coord,
		queue:    queue,
		cam:      cam,
		st:       st,
		src:      src,
		reporter: reporter,
		overlay:  overlay,
		clock:    clk,
	}
}

func TestProcessNamedCamera(t *testing.T) {
	f := newCoordFixture(t, cameras)
	f.queue.Push(Request{UserName: "viewer", RewardID: "r1", RedemptionID: "x1", Title: "Cockpit"})

	if res := f.coord.Tick(context.Background()); res.Err() != nil {
		t.Fatalf("tick failed: %v", res.Err())
	}

	cmds := f.src.Commands()
	if len(cmds) != 1 || cmds[0].CarNumber != "7" || cmds[0].Group != 4 {
		t.Fatalf("expected Cockpit on car 7, got %+v", cmds)
	}
	if !f.clock.sawOverride {
		t.Error("expected override to be held during the dwell")
	}
	if f.cam.State().Override {
		t.Error("expected override released afterwards")
	}
	if diff := cmp.Diff([]time.Duration{30 * time.Second}, f.clock.Dwells()); diff != "" {
		t.Errorf("dwell mismatch (-want +got):\n%s", diff)
	}

	wantOverlay := []overlayCall{{"Cockpit", "viewer"}, {"", ""}}
	if diff := cmp.Diff(wantOverlay, f.overlay.calls, cmp.AllowUnexported(overlayCall{})); diff != "" {
		t.Errorf("overlay mismatch (-want +got):\n%s", diff)
	}

	wantStatus := []statusCall{{"x1", rewards.StatusFulfilled}}
	if diff := cmp.Diff(wantStatus, f.reporter.calls, cmp.AllowUnexported(statusCall{})); diff != "" {
		t.Errorf("status mismatch (-want +got):\n%s", diff)
	}
}

func TestProcessRandomCameraNeverDefaultOrScenic(t *testing.T) {
	f := newCoordFixture(t, cameras)
	allowed := map[int]bool{2: true, 3: true, 4: true}

	for i := 0; i < 50; i++ {
		req := Request{UserName: "viewer", RedemptionID: "x", Title: "Random Camera"}
		if err := f.coord.Process(context.Background(), req); err != nil {
			t.Fatalf("Process failed: %v", err)
		}
	}

	for _, cmd := range f.src.Commands() {
		if !allowed[cmd.Group] {
			t.Fatalf("random pick chose group %d", cmd.Group)
		}
	}
}

func TestProcessRandomCameraUsesPick(t *testing.T) {
	f := newCoordFixture(t, cameras)
	var sizes []int
	f.coord.pick = func(n int) int {
		sizes = append(sizes, n)
		return n - 1
	}

	f.coord.Process(context.Background(), Request{Title: "Random Camera"})

	if diff := cmp.Diff([]int{3}, sizes); diff != "" {
		t.Errorf("expected 3 candidates (-want +got):\n%s", diff)
	}
	if got := f.overlay.calls[0].camera; got != "Cockpit" {
		t.Errorf("expected last candidate Cockpit, got %s", got)
	}
}

func TestProcessRandomCameraFailsClosed(t *testing.T) {
	f := newCoordFixture(t, map[string]int{"TV1": 1, "Scenic": 5})

	err := f.coord.Process(context.Background(), Request{RedemptionID: "x9", Title: "Random Camera"})
	if !errors.Is(err, ErrNoCandidate) {
		t.Fatalf("expected ErrNoCandidate, got %v", err)
	}
	if f.cam.State().Override || len(f.src.Commands()) != 0 {
		t.Error("expected no override and no command")
	}
	if len(f.reporter.calls) != 1 || f.reporter.calls[0].status != rewards.StatusCanceled {
		t.Errorf("expected CANCELED report, got %+v", f.reporter.calls)
	}
}

func TestProcessWithoutTarget(t *testing.T) {
	f := newCoordFixture(t, cameras)
	f.st.ClearTarget()

	err := f.coord.Process(context.Background(), Request{Title: "Gyro"})
	if !errors.Is(err, ErrNoTarget) {
		t.Fatalf("expected ErrNoTarget, got %v", err)
	}
	if len(f.clock.Dwells()) != 0 {
		t.Error("expected no dwell without a target")
	}
}

func TestProcessUnknownCamera(t *testing.T) {
	f := newCoordFixture(t, cameras)

	err := f.coord.Process(context.Background(), Request{Title: "Blimp"})
	if !errors.Is(err, camera.ErrUnknownCamera) {
		t.Fatalf("expected ErrUnknownCamera, got %v", err)
	}
}

func TestProcessFriendRedemption(t *testing.T) {
	f := newCoordFixture(t, cameras)
	f.st.SetFriends([]state.Friend{{ID: 55, Nickname: "Buddy", CarNumber: "22"}})

	if err := f.coord.Process(context.Background(), Request{Title: "Buddy"}); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	cmds := f.src.Commands()
	if len(cmds) != 1 || cmds[0].CarNumber != "22" || cmds[0].Group != 1 {
		t.Errorf("expected default camera on car 22, got %+v", cmds)
	}
}

func TestProcessSwallowsReportError(t *testing.T) {
	f := newCoordFixture(t, cameras)
	f.reporter.err = errors.New("helix down")

	if err := f.coord.Process(context.Background(), Request{Title: "Gyro"}); err != nil {
		t.Fatalf("expected report failure to be swallowed, got %v", err)
	}
	if f.cam.State().Override {
		t.Error("expected override to be released")
	}
}

func TestMonitorLogsOnChange(t *testing.T) {
	q := NewQueue(OrderLIFO)
	m := NewMonitor(q, zap.NewNop())

	m.Tick(context.Background())
	if m.last != 0 {
		t.Errorf("expected last=0, got %d", m.last)
	}
	q.Push(Request{})
	m.Tick(context.Background())
	if m.last != 1 {
		t.Errorf("expected last=1, got %d", m.last)
	}
}
