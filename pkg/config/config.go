// pkg/config/config.go
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/setanarut/vec"

	"github.com/opd-ai/go-arena/pkg/entity"
	"github.com/opd-ai/go-arena/pkg/physics"
)

// ErrInvalidConfig is wrapped by every validation and override error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Event delivery modes
const (
	// DeliveryDirect runs handlers inline during the detection pass.
	DeliveryDirect = "direct"
	// DeliveryQueued buffers events and drains them after the pass.
	DeliveryQueued = "queued"
)

// ArenaConfig contains configuration for an arena simulation
type ArenaConfig struct {
	World    WorldConfig    `json:"world"`
	TickRate int            `json:"tickRate"`
	Boundary BoundaryConfig `json:"boundary"`
	Bodies   []BodyConfig   `json:"bodies"`
	Events   EventConfig    `json:"events"`
}

// WorldConfig is the rectangle covered by the spatial index
type WorldConfig struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect converts the world config to a physics.Rect
func (w WorldConfig) Rect() physics.Rect {
	return physics.Rect{X: w.X, Y: w.Y, Width: w.Width, Height: w.Height}
}

// BoundaryConfig controls the walls lining the world
type BoundaryConfig struct {
	Enabled   bool    `json:"enabled"`
	Thickness float64 `json:"thickness"`
}

// BodyConfig describes one body spawned at startup
type BodyConfig struct {
	Kind     string  `json:"kind"`
	Shape    string  `json:"shape"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	VX       float64 `json:"vx"`
	VY       float64 `json:"vy"`
	Radius   float64 `json:"radius,omitempty"`
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
	Rotation float64 `json:"rotation,omitempty"`
	Spin     float64 `json:"spin,omitempty"`
}

// EventConfig contains collision event delivery configuration
type EventConfig struct {
	Mode               string `json:"mode"`
	QueueCapacity      int    `json:"queueCapacity"`
	BreakerMaxFailures uint32 `json:"breakerMaxFailures"`
	BreakerTimeoutMS   int    `json:"breakerTimeoutMs"`
}

// BreakerTimeout returns the breaker open timeout as a duration
func (e EventConfig) BreakerTimeout() time.Duration {
	return time.Duration(e.BreakerTimeoutMS) * time.Millisecond
}

// TickDuration returns the wall-clock length of one tick
func (c *ArenaConfig) TickDuration() time.Duration {
	if c.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.TickRate)
}

// LoadConfig loads a configuration from a file
func LoadConfig(path string) (*ArenaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config ArenaConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *ArenaConfig, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a default arena configuration
func DefaultConfig() *ArenaConfig {
	return &ArenaConfig{
		World: WorldConfig{
			X:      0,
			Y:      0,
			Width:  1000,
			Height: 1000,
		},
		TickRate: 20,
		Boundary: BoundaryConfig{
			Enabled:   true,
			Thickness: 10,
		},
		Bodies: []BodyConfig{
			{Kind: "planet", Shape: "circle", X: 500, Y: 500, Radius: 60},
			{Kind: "ship", Shape: "oriented_box", X: 200, Y: 500, VX: 40, Width: 24, Height: 12, Spin: 0.5},
			{Kind: "ship", Shape: "oriented_box", X: 800, Y: 500, VX: -40, Width: 24, Height: 12, Rotation: 3.14159},
			{Kind: "projectile", Shape: "segment", X: 500, Y: 100, VY: 120, Width: 8, Rotation: 1.5708},
			{Kind: "projectile", Shape: "circle", X: 100, Y: 100, VX: 90, VY: 90, Radius: 2},
		},
		Events: EventConfig{
			Mode:               DeliveryQueued,
			QueueCapacity:      256,
			BreakerMaxFailures: 5,
			BreakerTimeoutMS:   1000,
		},
	}
}

// Build creates the body described by b
func (b BodyConfig) Build() (*entity.Body, error) {
	kind, err := entity.ParseKind(b.Kind)
	if err != nil {
		return nil, err
	}
	shapeKind, err := entity.ParseShape(b.Shape)
	if err != nil {
		return nil, err
	}

	body, err := entity.NewBody(kind, entity.Shape{
		Kind:   shapeKind,
		Radius: b.Radius,
		Width:  b.Width,
		Height: b.Height,
	}, vec.Vec2{X: b.X, Y: b.Y}, vec.Vec2{X: b.VX, Y: b.VY})
	if err != nil {
		return nil, err
	}
	body.Spin = b.Spin
	if b.Rotation != 0 {
		body.SetRotation(b.Rotation)
	}
	return body, nil
}

// Validate checks the configuration and reports every problem found, each
// wrapping ErrInvalidConfig.
func (c *ArenaConfig) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.World.Width <= 0 || c.World.Height <= 0 {
		invalid("world size must be positive, got %vx%v", c.World.Width, c.World.Height)
	}
	if c.TickRate < 1 || c.TickRate > 1000 {
		invalid("tick rate must be between 1 and 1000, got %d", c.TickRate)
	}
	if c.Boundary.Enabled {
		limit := min(c.World.Width, c.World.Height) / 2
		if c.Boundary.Thickness <= 0 || c.Boundary.Thickness >= limit {
			invalid("boundary thickness must be in (0, %v), got %v", limit, c.Boundary.Thickness)
		}
	}

	switch c.Events.Mode {
	case DeliveryDirect:
	case DeliveryQueued:
		if c.Events.QueueCapacity <= 0 {
			invalid("event queue capacity must be positive, got %d", c.Events.QueueCapacity)
		}
		if c.Events.BreakerTimeoutMS < 0 {
			invalid("breaker timeout must not be negative, got %dms", c.Events.BreakerTimeoutMS)
		}
	default:
		invalid("unknown event mode %q", c.Events.Mode)
	}

	for i, b := range c.Bodies {
		if _, err := entity.ParseKind(b.Kind); err != nil {
			invalid("body %d: %v", i, err)
		}
		shapeKind, err := entity.ParseShape(b.Shape)
		if err != nil {
			invalid("body %d: %v", i, err)
			continue
		}
		shape := entity.Shape{Kind: shapeKind, Radius: b.Radius, Width: b.Width, Height: b.Height}
		if err := shape.Validate(); err != nil {
			invalid("body %d: %v", i, err)
		}
	}

	return errors.Join(errs...)
}
