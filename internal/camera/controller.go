// Package camera arbitrates the broadcast camera between the automatic
// director and a viewer override. The current camera, the override flag and
// the switch command itself all sit behind one lock, so at most one writer
// issues a switch at a time.
package camera

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Switcher issues camera commands. telemetry.Source implements it.
type Switcher interface {
	SwitchCamera(carNumber string, group, mode int) error
}

// Catalog resolves camera names to simulator group numbers.
type Catalog interface {
	CameraGroup(name string) (int, bool)
}

// State is the arbitration state at one moment.
type State struct {
	Camera    string `json:"camera"`
	CarNumber string `json:"car_number"`
	Override  bool   `json:"override"`
	User      string `json:"user,omitempty"`
	Title     string `json:"title,omitempty"`
}

// Controller owns the current camera.
type Controller struct {
	switcher Switcher
	catalog  Catalog
	logger   *zap.Logger

	mu    sync.Mutex
	state State
}

func NewController(switcher Switcher, catalog Catalog, logger *zap.Logger) *Controller {
	return &Controller{
		switcher: switcher,
		catalog:  catalog,
		logger:   logger,
	}
}

// Auto requests a camera on behalf of the automatic director. It does
// nothing while an override is active or when the car and camera are
// already on screen, and reports whether a command was issued.
func (c *Controller) Auto(carNumber, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Override {
		return false, nil
	}
	if c.state.Camera == name && c.state.CarNumber == carNumber {
		return false, nil
	}
	if err := c.switchLocked(carNumber, name); err != nil {
		return false, err
	}
	c.logger.Info("camera switched",
		zap.String("camera", name),
		zap.String("car", carNumber),
	)
	return true, nil
}

// BeginOverride suspends automatic switching on behalf of a redeemer.
func (c *Controller) BeginOverride(user, title string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Override {
		return ErrOverrideActive
	}
	c.state.Override = true
	c.state.User = user
	c.state.Title = title
	return nil
}

// OverrideSwitch issues a camera command while the override is held. The
// command is always sent.
func (c *Controller) OverrideSwitch(carNumber, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.Override {
		return ErrOverrideNotHeld
	}
	if err := c.switchLocked(carNumber, name); err != nil {
		return err
	}
	c.logger.Info("override camera switched",
		zap.String("camera", name),
		zap.String("car", carNumber),
		zap.String("user", c.state.User),
	)
	return nil
}

// EndOverride hands control back to the automatic director.
func (c *Controller) EndOverride() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Override = false
	c.state.User = ""
	c.state.Title = ""
}

// Reset forgets the camera on screen so the next automatic request is
// always issued. An active override is left alone.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Camera = ""
	c.state.CarNumber = ""
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) switchLocked(carNumber, name string) error {
	group, ok := c.catalog.CameraGroup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCamera, name)
	}
	if err := c.switcher.SwitchCamera(carNumber, group, 0); err != nil {
		return fmt.Errorf("switch to %s on car %s: %w", name, carNumber, err)
	}
	c.state.Camera = name
	c.state.CarNumber = carNumber
	return nil
}
