package camera

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

type switchCall struct {
	car   string
	group int
}

type mockSwitcher struct {
	calls []switchCall
	err   error
}

func (m *mockSwitcher) SwitchCamera(carNumber string, group, _ int) error {
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, switchCall{car: carNumber, group: group})
	return nil
}

type mapCatalog map[string]int

func (m mapCatalog) CameraGroup(name string) (int, bool) {
	g, ok := m[name]
	return g, ok
}

func newTestController() (*Controller, *mockSwitcher) {
	sw := &mockSwitcher{}
	catalog := mapCatalog{"TV1": 1, "Chase": 2, "Far Chase": 3, "Gyro": 4}
	return NewController(sw, catalog, zap.NewNop()), sw
}

func TestAutoIsIdempotent(t *testing.T) {
	c, sw := newTestController()

	switched, err := c.Auto("7", "Chase")
	if err != nil || !switched {
		t.Fatalf("expected first switch to be issued, got switched=%v err=%v", switched, err)
	}

	switched, err = c.Auto("7", "Chase")
	if err != nil || switched {
		t.Fatalf("expected repeat switch to be a no-op, got switched=%v err=%v", switched, err)
	}

	if len(sw.calls) != 1 {
		t.Errorf("expected 1 command, got %d", len(sw.calls))
	}

	// Same camera on another car is a new command
	if switched, _ := c.Auto("12", "Chase"); !switched {
		t.Error("expected switch to a different car")
	}
}

func TestAutoSuppressedDuringOverride(t *testing.T) {
	c, sw := newTestController()
	c.Auto("7", "TV1")

	if err := c.BeginOverride("viewer", "Gyro"); err != nil {
		t.Fatalf("BeginOverride failed: %v", err)
	}
	if err := c.OverrideSwitch("7", "Gyro"); err != nil {
		t.Fatalf("OverrideSwitch failed: %v", err)
	}

	switched, err := c.Auto("7", "Far Chase")
	if err != nil || switched {
		t.Fatalf("expected auto switch to be suppressed, got switched=%v err=%v", switched, err)
	}
	if got := c.State().Camera; got != "Gyro" {
		t.Errorf("expected override camera to stay, got %s", got)
	}

	c.EndOverride()
	if switched, _ := c.Auto("7", "Far Chase"); !switched {
		t.Error("expected auto switch after override ended")
	}
	if len(sw.calls) != 3 {
		t.Errorf("expected 3 commands, got %d", len(sw.calls))
	}
}

func TestOverrideSwitchAlwaysIssues(t *testing.T) {
	c, sw := newTestController()
	c.BeginOverride("viewer", "Chase")
	c.OverrideSwitch("7", "Chase")
	c.OverrideSwitch("7", "Chase")

	if len(sw.calls) != 2 {
		t.Errorf("expected both override commands to be sent, got %d", len(sw.calls))
	}
}

func TestOverrideErrors(t *testing.T) {
	c, _ := newTestController()

	if err := c.OverrideSwitch("7", "Chase"); !errors.Is(err, ErrOverrideNotHeld) {
		t.Errorf("expected ErrOverrideNotHeld, got %v", err)
	}
	c.BeginOverride("a", "Chase")
	if err := c.BeginOverride("b", "Gyro"); !errors.Is(err, ErrOverrideActive) {
		t.Errorf("expected ErrOverrideActive, got %v", err)
	}
}

func TestUnknownCamera(t *testing.T) {
	c, sw := newTestController()
	if _, err := c.Auto("7", "Blimp"); !errors.Is(err, ErrUnknownCamera) {
		t.Fatalf("expected ErrUnknownCamera, got %v", err)
	}
	if len(sw.calls) != 0 || c.State().Camera != "" {
		t.Error("expected no command and no state change")
	}
}

func TestFailedSwitchKeepsState(t *testing.T) {
	c, sw := newTestController()
	c.Auto("7", "TV1")
	sw.err = errors.New("bridge down")

	if _, err := c.Auto("7", "Chase"); err == nil {
		t.Fatal("expected switch error")
	}
	if got := c.State().Camera; got != "TV1" {
		t.Errorf("expected TV1 to remain current, got %s", got)
	}
}

func TestResetForcesNextSwitch(t *testing.T) {
	c, sw := newTestController()
	c.Auto("7", "TV1")
	c.Reset()
	c.Auto("7", "TV1")

	if len(sw.calls) != 2 {
		t.Errorf("expected command to be reissued after reset, got %d", len(sw.calls))
	}
}
