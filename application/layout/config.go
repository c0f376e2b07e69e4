package layout

import "time"

// Config tunes the force simulation. Zero values fall back to the
// defaults in withDefaults.
type Config struct {
	// Physics
	Repulsion       float64 // pairwise push strength, default 2000
	RepulsionCutoff float64 // distance beyond which repulsion is zero, default 480
	SpringLength    float64 // rest length of every link, default 80
	SpringStiffness float64 // default 0.05
	Damping         float64 // velocity retained per step, default 0.85
	CenterStrength  float64 // weak pull toward the viewport midpoint, default 0.01

	// Collision
	NodeRadius    float64 // default 40
	CollideMargin float64 // extra separation on top of two radii, default 8

	// Energy
	AlphaDecay  float64 // geometric decay per step, default 0.02
	AlphaMin    float64 // settle floor, default 0.003
	ReheatAlpha float64 // energy injected on topology change, default 0.5

	// Ticking
	TickInterval time.Duration // default 16ms
}

// DefaultConfig returns the default simulation parameters.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	d := Config{
		Repulsion:       2000,
		RepulsionCutoff: 480,
		SpringLength:    80,
		SpringStiffness: 0.05,
		Damping:         0.85,
		CenterStrength:  0.01,
		NodeRadius:      40,
		CollideMargin:   8,
		AlphaDecay:      0.02,
		AlphaMin:        0.003,
		ReheatAlpha:     0.5,
		TickInterval:    16 * time.Millisecond,
	}
	if c.Repulsion != 0 {
		d.Repulsion = c.Repulsion
	}
	if c.RepulsionCutoff != 0 {
		d.RepulsionCutoff = c.RepulsionCutoff
	}
	if c.SpringLength != 0 {
		d.SpringLength = c.SpringLength
	}
	if c.SpringStiffness != 0 {
		d.SpringStiffness = c.SpringStiffness
	}
	if c.Damping != 0 {
		d.Damping = c.Damping
	}
	if c.CenterStrength != 0 {
		d.CenterStrength = c.CenterStrength
	}
	if c.NodeRadius != 0 {
		d.NodeRadius = c.NodeRadius
	}
	if c.CollideMargin != 0 {
		d.CollideMargin = c.CollideMargin
	}
	if c.AlphaDecay != 0 {
		d.AlphaDecay = c.AlphaDecay
	}
	if c.AlphaMin != 0 {
		d.AlphaMin = c.AlphaMin
	}
	if c.ReheatAlpha != 0 {
		d.ReheatAlpha = c.ReheatAlpha
	}
	if c.TickInterval != 0 {
		d.TickInterval = c.TickInterval
	}
	return d
}
