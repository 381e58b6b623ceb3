package particle

import (
	"math"
	"math/rand"
	"time"

	"github.com/Carmen-Shannon/bounce-go/common"
)

// Default spawn parameters, matching the classic bouncing-balls demo.
const (
	// DefaultCount is the number of particles spawned when none is configured.
	DefaultCount = 100
	// DefaultDomainWidth is the default domain width.
	DefaultDomainWidth = 800.0
	// DefaultDomainHeight is the default domain height.
	DefaultDomainHeight = 600.0
	// DefaultMinRadius is the smallest spawnable particle radius.
	DefaultMinRadius = 5.0
	// DefaultMaxRadius is the largest spawnable particle radius.
	DefaultMaxRadius = 15.0
	// DefaultMaxSpeed is the per-axis cap on initial velocity magnitude.
	DefaultMaxSpeed = 200.0
	// defaultPlacementAttempts bounds the rejection sampling per particle when
	// searching for a non-overlapping position. Placement is best-effort: once
	// the attempts are exhausted the last candidate is kept regardless.
	defaultPlacementAttempts = 32
)

// spawnConfig carries the accumulated SpawnOption state.
type spawnConfig struct {
	count             int
	domainWidth       float32
	domainHeight      float32
	minRadius         float32
	maxRadius         float32
	maxSpeed          float32
	seed              int64
	seeded            bool
	palette           [][4]float32
	placementAttempts int
}

// SpawnOption configures the Spawn call via the option-builder pattern.
type SpawnOption func(*spawnConfig)

// WithCount sets the number of particles to spawn.
//
// Parameters:
//   - n: particle count (values < 1 fall back to the default)
func WithCount(n int) SpawnOption {
	return func(c *spawnConfig) {
		if n >= 1 {
			c.count = n
		}
	}
}

// WithDomain sets the domain rectangle particles spawn inside.
//
// Parameters:
//   - width: domain width (must be > 0)
//   - height: domain height (must be > 0)
func WithDomain(width, height float32) SpawnOption {
	return func(c *spawnConfig) {
		if width > 0 {
			c.domainWidth = width
		}
		if height > 0 {
			c.domainHeight = height
		}
	}
}

// WithRadiusRange sets the inclusive range of spawnable radii.
//
// Parameters:
//   - min: smallest radius (must be > 0)
//   - max: largest radius (must be >= min)
func WithRadiusRange(min, max float32) SpawnOption {
	return func(c *spawnConfig) {
		if min > 0 && max >= min {
			c.minRadius = min
			c.maxRadius = max
		}
	}
}

// WithMaxSpeed sets the per-axis cap on initial velocity. Each velocity
// component is drawn uniformly from [-max, max].
//
// Parameters:
//   - max: the per-axis speed cap (must be >= 0)
func WithMaxSpeed(max float32) SpawnOption {
	return func(c *spawnConfig) {
		if max >= 0 {
			c.maxSpeed = max
		}
	}
}

// WithSeed fixes the random source so spawns are reproducible.
//
// Parameters:
//   - seed: the seed for the random source
func WithSeed(seed int64) SpawnOption {
	return func(c *spawnConfig) {
		c.seed = seed
		c.seeded = true
	}
}

// WithPalette restricts particle colors to the given set instead of random
// hues. Passing no colors leaves the default hue wheel in place.
//
// Parameters:
//   - colors: RGBA colors to cycle through randomly
func WithPalette(colors ...[4]float32) SpawnOption {
	return func(c *spawnConfig) {
		if len(colors) > 0 {
			c.palette = colors
		}
	}
}

// Spawn produces a fresh particle array with uniformly random radii,
// positions, and velocities. Positions are inset by each particle's radius so
// no particle starts embedded in a wall, and placement is best-effort
// non-overlapping: a bounded number of candidate positions are tried per
// particle before accepting an overlap.
//
// Parameters:
//   - options: functional options for spawn configuration
//
// Returns:
//   - []Particle: the spawned particles, len equal to the configured count
func Spawn(options ...SpawnOption) []Particle {
	c := &spawnConfig{
		count:             DefaultCount,
		domainWidth:       DefaultDomainWidth,
		domainHeight:      DefaultDomainHeight,
		minRadius:         DefaultMinRadius,
		maxRadius:         DefaultMaxRadius,
		maxSpeed:          DefaultMaxSpeed,
		placementAttempts: defaultPlacementAttempts,
	}
	for _, opt := range options {
		opt(c)
	}

	seed := c.seed
	if !c.seeded {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	particles := make([]Particle, c.count)
	for i := range particles {
		radius := c.minRadius + rng.Float32()*(c.maxRadius-c.minRadius)

		var pos common.Vec2
		for attempt := 0; attempt < c.placementAttempts; attempt++ {
			pos = common.Vec2{
				X: insetCoord(rng, c.domainWidth, radius),
				Y: insetCoord(rng, c.domainHeight, radius),
			}
			if !overlapsAny(particles[:i], pos, radius) {
				break
			}
		}

		particles[i] = Particle{
			Position: pos,
			Velocity: common.Vec2{
				X: (rng.Float32()*2 - 1) * c.maxSpeed,
				Y: (rng.Float32()*2 - 1) * c.maxSpeed,
			},
			Radius: radius,
			Color:  c.pickColor(rng),
		}
	}
	return particles
}

// insetCoord draws a coordinate in [radius, extent-radius], falling back to
// the center when the extent cannot contain the diameter.
func insetCoord(rng *rand.Rand, extent, radius float32) float32 {
	span := extent - 2*radius
	if span <= 0 {
		return extent / 2
	}
	return radius + rng.Float32()*span
}

// overlapsAny reports whether a candidate circle overlaps any placed particle.
func overlapsAny(placed []Particle, pos common.Vec2, radius float32) bool {
	candidate := Particle{Position: pos, Radius: radius}
	for _, p := range placed {
		if candidate.Overlaps(p) {
			return true
		}
	}
	return false
}

// pickColor selects a palette entry when one is configured, otherwise a
// saturated hue off the color wheel.
func (c *spawnConfig) pickColor(rng *rand.Rand) [4]float32 {
	if len(c.palette) > 0 {
		return c.palette[rng.Intn(len(c.palette))]
	}
	return hueToRGBA(rng.Float32())
}

// hueToRGBA converts a hue in [0,1) to a saturated RGBA color (HSV with
// s=0.65, v=0.95).
func hueToRGBA(hue float32) [4]float32 {
	const s, v = 0.65, 0.95
	h := float64(hue) * 6
	i := int(math.Floor(h))
	f := float32(h - math.Floor(h))
	p := float32(v * (1 - s))
	q := float32(v * (1 - s*float64(f)))
	t := float32(v * (1 - s*float64(1-f)))

	switch i % 6 {
	case 0:
		return [4]float32{v, t, p, 1}
	case 1:
		return [4]float32{q, v, p, 1}
	case 2:
		return [4]float32{p, v, t, 1}
	case 3:
		return [4]float32{p, q, v, 1}
	case 4:
		return [4]float32{t, p, v, 1}
	default:
		return [4]float32{v, p, q, 1}
	}
}
