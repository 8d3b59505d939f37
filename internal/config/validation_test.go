package config

import (
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/camdirector/internal/redeem"
)

func validConfig() Config {
	return Config{
		Telemetry: TelemetryConfig{TickInterval: time.Second},
		Director: DirectorConfig{
			DriverID:      42,
			DefaultCamera: "TV1",
			SwitchDwell:   5 * time.Second,
		},
		Rewards: RewardsConfig{
			CameraSwitchDuration: 30 * time.Second,
			QueueOrder:           redeem.OrderLIFO,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected no error for valid config, got: %v", err)
	}
}

func TestValidate_InvalidQueueOrder(t *testing.T) {
	cfg := validConfig()
	cfg.Rewards.QueueOrder = "random"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid queue order")
	}
	if !strings.Contains(err.Error(), "invalid queue_order: random") {
		t.Errorf("error should mention queue order, got: %v", err)
	}
}

func TestValidate_AcceptsQueueOrders(t *testing.T) {
	for _, order := range []string{redeem.OrderLIFO, redeem.OrderFIFO} {
		cfg := validConfig()
		cfg.Rewards.QueueOrder = order
		if err := cfg.Validate(); err != nil {
			t.Errorf("queue order %q rejected: %v", order, err)
		}
	}
}

func TestValidate_RewardsRequireCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.Rewards.Enabled = true
	cfg.Rewards.RatePerSecond = 1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when rewards enabled without credentials")
	}

	errStr := err.Error()
	for _, want := range []string{"client_id", "access_token", "broadcaster_id"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Director.DriverID = 0
	cfg.Director.DefaultCamera = ""
	cfg.Friends.Drivers = map[string]string{"abc": "Nobody"}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for multiple issues")
	}

	verrs := err.(*ValidationErrors)
	if len(verrs.Problems) != 3 {
		t.Errorf("expected 3 problems, got %d: %v", len(verrs.Problems), verrs.Problems)
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "director:") || !strings.Contains(errStr, "friends:") {
		t.Errorf("error should group by section, got: %v", err)
	}
}

func TestFriendsSkipNonNumericKeys(t *testing.T) {
	f := FriendsConfig{Drivers: map[string]string{"12": "A", "x": "B"}}
	got := f.DriverFriends()
	if len(got) != 1 || got[12] != "A" {
		t.Errorf("unexpected friends map: %v", got)
	}
}
