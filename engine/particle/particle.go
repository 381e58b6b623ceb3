// package particle defines the particle data model shared by the store, the
// simulation passes, and the render/stream consumers, plus the random spawner
// that produces a run's initial state.
package particle

import "github.com/Carmen-Shannon/bounce-go/common"

// Particle is one simulated body. The shape is fixed: a particle is created
// once at spawn time and only its position and velocity change afterwards.
// A particle's index in its array is its identity for the lifetime of the run.
type Particle struct {
	// Position is the center of the particle in domain space (y-up).
	Position common.Vec2
	// Velocity is the particle's velocity in domain units per second.
	Velocity common.Vec2
	// Radius is the particle's collision and draw radius in domain units.
	Radius float32
	// Color is an optional cosmetic RGBA tint in [0,1]. The zero value is
	// legal; consumers that draw treat it as unset and may substitute their
	// own default.
	Color [4]float32
}

// Overlaps reports whether p and o occupy overlapping space: the Euclidean
// distance between their centers is strictly less than the sum of their radii.
// Tangent particles (distance exactly equal) do not overlap.
//
// Parameters:
//   - o: the other particle
//
// Returns:
//   - bool: true if the particles overlap
func (p Particle) Overlaps(o Particle) bool {
	sum := p.Radius + o.Radius
	return p.Position.Sub(o.Position).LengthSq() < sum*sum
}
