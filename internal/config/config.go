package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dgnsrekt/camdirector/internal/redeem"
)

type Config struct {
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Director  DirectorConfig  `mapstructure:"director"`
	Rewards   RewardsConfig   `mapstructure:"rewards"`
	Cameras   []CameraReward  `mapstructure:"cameras"`
	Friends   FriendsConfig   `mapstructure:"friends"`
	Overlay   OverlayConfig   `mapstructure:"overlay"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type TelemetryConfig struct {
	URL              string        `mapstructure:"url"`
	TickInterval     time.Duration `mapstructure:"tick_interval"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	ValidateFrames   bool          `mapstructure:"validate_frames"`
	ReplayFile       string        `mapstructure:"replay_file"`
}

type DirectorConfig struct {
	DriverID        int           `mapstructure:"driver_id"`
	TeamID          int           `mapstructure:"team_id"`
	DefaultCamera   string        `mapstructure:"default_camera"`
	QualifyingChase bool          `mapstructure:"qualifying_chase"`
	SwitchDwell     time.Duration `mapstructure:"switch_dwell"`
	SlowSpeedKmh    int           `mapstructure:"slow_speed_kmh"`
	ConfirmCamera   string        `mapstructure:"confirm_camera"`
	ConfirmDwell    time.Duration `mapstructure:"confirm_dwell"`
}

type RewardsConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	BaseURL              string        `mapstructure:"base_url"`
	ClientID             string        `mapstructure:"client_id"`
	AccessToken          string        `mapstructure:"access_token"`
	BroadcasterID        string        `mapstructure:"broadcaster_id"`
	RatePerSecond        int           `mapstructure:"rate_per_second"`
	RetryCount           int           `mapstructure:"retry_count"`
	RetryDelay           int           `mapstructure:"retry_delay_sec"`
	TimeoutSec           int           `mapstructure:"timeout_sec"`
	CatalogWebhook       string        `mapstructure:"catalog_webhook"`
	PromptMarker         string        `mapstructure:"prompt_marker"`
	RandomCameraTitle    string        `mapstructure:"random_camera_title"`
	RandomCameraCost     int           `mapstructure:"random_camera_cost"`
	CameraSwitchDuration time.Duration `mapstructure:"camera_switch_duration"`
	QueueOrder           string        `mapstructure:"queue_order"`
}

// CameraReward is one entry of the viewer-facing camera catalog.
type CameraReward struct {
	Name            string `mapstructure:"name"`
	Cost            int    `mapstructure:"cost"`
	CooldownEnabled bool   `mapstructure:"cooldown_enabled"`
	CooldownSec     int    `mapstructure:"cooldown_sec"`
}

// FriendsConfig maps driver ids and team ids to the nickname used as reward title.
type FriendsConfig struct {
	Enabled     bool              `mapstructure:"enabled"`
	Drivers     map[string]string `mapstructure:"drivers"`
	Teams       map[string]string `mapstructure:"teams"`
	Cost        int               `mapstructure:"cost"`
	CooldownSec int               `mapstructure:"cooldown_sec"`
}

type OverlayConfig struct {
	Directory  string `mapstructure:"directory"`
	CameraFile string `mapstructure:"camera_file"`
	UserFile   string `mapstructure:"user_file"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Directory  string `mapstructure:"directory"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("telemetry.url", "ws://127.0.0.1:8182/telemetry")
	v.SetDefault("telemetry.tick_interval", "1s")
	v.SetDefault("telemetry.handshake_timeout", "5s")
	v.SetDefault("telemetry.validate_frames", true)
	v.SetDefault("director.default_camera", "TV1")
	v.SetDefault("director.qualifying_chase", true)
	v.SetDefault("director.switch_dwell", "5s")
	v.SetDefault("director.slow_speed_kmh", 60)
	v.SetDefault("director.confirm_camera", "Rear Chase")
	v.SetDefault("director.confirm_dwell", "2s")
	v.SetDefault("rewards.enabled", false)
	v.SetDefault("rewards.base_url", "https://api.twitch.tv/helix")
	v.SetDefault("rewards.rate_per_second", 2)
	v.SetDefault("rewards.retry_count", 3)
	v.SetDefault("rewards.retry_delay_sec", 1)
	v.SetDefault("rewards.timeout_sec", 10)
	v.SetDefault("rewards.prompt_marker", "camdirector")
	v.SetDefault("rewards.random_camera_title", "Random Camera")
	v.SetDefault("rewards.random_camera_cost", 500)
	v.SetDefault("rewards.camera_switch_duration", "30s")
	v.SetDefault("rewards.queue_order", redeem.OrderLIFO)
	v.SetDefault("overlay.directory", ".")
	v.SetDefault("overlay.camera_file", "redeem_cam.txt")
	v.SetDefault("overlay.user_file", "redeem_user.txt")
	v.SetDefault("server.enabled", true)
	v.SetDefault("server.addr", "127.0.0.1:8089")
	v.SetDefault("logging.enabled", false)
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 20)
	v.SetDefault("logging.max_backups", 5)

	// Environment variable support
	v.SetEnvPrefix("CAMDIRECTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Explicitly bind secrets so they never have to live in the file
	_ = v.BindEnv("rewards.access_token", "CAMDIRECTOR_REWARDS_ACCESS_TOKEN")
	_ = v.BindEnv("rewards.client_id", "CAMDIRECTOR_REWARDS_CLIENT_ID")
	_ = v.BindEnv("director.driver_id", "CAMDIRECTOR_DRIVER_ID")
	_ = v.BindEnv("director.team_id", "CAMDIRECTOR_TEAM_ID")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("camdirector")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	errs := &ValidationErrors{}

	if c.Director.DriverID <= 0 && c.Director.TeamID <= 0 {
		errs.add("director", "driver_id or team_id is required (set CAMDIRECTOR_DRIVER_ID or CAMDIRECTOR_TEAM_ID)")
	}
	if c.Director.DefaultCamera == "" {
		errs.add("director", "default_camera must not be empty")
	}
	if c.Director.SwitchDwell <= 0 {
		errs.add("director", "switch_dwell must be > 0")
	}
	if c.Telemetry.TickInterval <= 0 {
		errs.add("telemetry", "tick_interval must be > 0")
	}
	if c.Rewards.CameraSwitchDuration <= 0 {
		errs.add("rewards", "camera_switch_duration must be > 0")
	}
	if c.Rewards.QueueOrder != redeem.OrderLIFO && c.Rewards.QueueOrder != redeem.OrderFIFO {
		errs.add("rewards", fmt.Sprintf("invalid queue_order: %s (must be 'lifo' or 'fifo')", c.Rewards.QueueOrder))
	}
	if c.Rewards.Enabled {
		if c.Rewards.ClientID == "" {
			errs.add("rewards", "client_id is required when rewards are enabled")
		}
		if c.Rewards.AccessToken == "" {
			errs.add("rewards", "access_token is required when rewards are enabled (set CAMDIRECTOR_REWARDS_ACCESS_TOKEN)")
		}
		if c.Rewards.BroadcasterID == "" {
			errs.add("rewards", "broadcaster_id is required when rewards are enabled")
		}
		if c.Rewards.RatePerSecond < 1 {
			errs.add("rewards", "rate_per_second must be >= 1")
		}
	}
	for i, cam := range c.Cameras {
		if cam.Name == "" {
			errs.add("cameras", fmt.Sprintf("entry %d has no name", i))
		}
	}
	for key := range c.Friends.Drivers {
		if _, err := strconv.Atoi(key); err != nil {
			errs.add("friends", fmt.Sprintf("driver id %q is not a number", key))
		}
	}
	for key := range c.Friends.Teams {
		if _, err := strconv.Atoi(key); err != nil {
			errs.add("friends", fmt.Sprintf("team id %q is not a number", key))
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// DriverFriends returns the friend driver nicknames keyed by numeric id.
func (f FriendsConfig) DriverFriends() map[int]string {
	return numericKeys(f.Drivers)
}

// TeamFriends returns the friend team nicknames keyed by numeric id.
func (f FriendsConfig) TeamFriends() map[int]string {
	return numericKeys(f.Teams)
}

func numericKeys(in map[string]string) map[int]string {
	out := make(map[int]string, len(in))
	for k, v := range in {
		id, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[id] = v
	}
	return out
}

// CameraNames returns the configured catalog names in order.
func (c *Config) CameraNames() []string {
	names := make([]string, 0, len(c.Cameras))
	for _, cam := range c.Cameras {
		names = append(names, cam.Name)
	}
	return names
}
