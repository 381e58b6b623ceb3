package particle

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/bounce-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSpawnRespectsBounds verifies spawned particles sit inside the domain
// inset by their own radius, with radii and velocities inside the configured
// ranges.
func TestSpawnRespectsBounds(t *testing.T) {
	const (
		width  = 800.0
		height = 600.0
	)
	particles := Spawn(
		WithCount(200),
		WithDomain(width, height),
		WithRadiusRange(5, 15),
		WithMaxSpeed(200),
		WithSeed(42),
	)
	require.Len(t, particles, 200)

	for i, p := range particles {
		assert.GreaterOrEqual(t, p.Radius, float32(5), "particle %d radius", i)
		assert.LessOrEqual(t, p.Radius, float32(15), "particle %d radius", i)

		assert.GreaterOrEqual(t, p.Position.X, p.Radius, "particle %d x", i)
		assert.LessOrEqual(t, p.Position.X, float32(width)-p.Radius, "particle %d x", i)
		assert.GreaterOrEqual(t, p.Position.Y, p.Radius, "particle %d y", i)
		assert.LessOrEqual(t, p.Position.Y, float32(height)-p.Radius, "particle %d y", i)

		assert.LessOrEqual(t, p.Velocity.X, float32(200), "particle %d vx", i)
		assert.GreaterOrEqual(t, p.Velocity.X, float32(-200), "particle %d vx", i)
		assert.LessOrEqual(t, p.Velocity.Y, float32(200), "particle %d vy", i)
		assert.GreaterOrEqual(t, p.Velocity.Y, float32(-200), "particle %d vy", i)
	}
}

// TestSpawnSeedDeterminism verifies two spawns with the same seed produce
// identical arrays, and different seeds diverge.
func TestSpawnSeedDeterminism(t *testing.T) {
	a := Spawn(WithSeed(7), WithCount(50))
	b := Spawn(WithSeed(7), WithCount(50))
	c := Spawn(WithSeed(8), WithCount(50))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

// TestSpawnAvoidsOverlapWhenSparse verifies best-effort placement finds
// non-overlapping positions when the domain has plenty of room.
func TestSpawnAvoidsOverlapWhenSparse(t *testing.T) {
	particles := Spawn(
		WithCount(20),
		WithDomain(2000, 2000),
		WithRadiusRange(2, 4),
		WithSeed(1),
	)

	for i := 0; i < len(particles); i++ {
		for j := i + 1; j < len(particles); j++ {
			assert.False(t, particles[i].Overlaps(particles[j]),
				"particles %d and %d overlap", i, j)
		}
	}
}

// TestSpawnPalette verifies every spawned color comes from the configured
// palette.
func TestSpawnPalette(t *testing.T) {
	red := [4]float32{1, 0, 0, 1}
	blue := [4]float32{0, 0, 1, 1}
	particles := Spawn(WithCount(30), WithSeed(3), WithPalette(red, blue))

	for i, p := range particles {
		assert.Contains(t, [][4]float32{red, blue}, p.Color, "particle %d color", i)
	}
}

// TestOverlaps verifies the strict-inequality overlap predicate: tangent
// circles do not overlap, intersecting circles do.
func TestOverlaps(t *testing.T) {
	a := Particle{Position: common.Vec2{X: 0, Y: 0}, Radius: 10}
	touching := Particle{Position: common.Vec2{X: 15, Y: 0}, Radius: 5}
	apart := Particle{Position: common.Vec2{X: 30, Y: 0}, Radius: 5}
	inside := Particle{Position: common.Vec2{X: 8, Y: 0}, Radius: 5}

	assert.False(t, a.Overlaps(touching))
	assert.False(t, a.Overlaps(apart))
	assert.True(t, a.Overlaps(inside))
}

// marshalGPUParticle writes g at its declared std430 offsets: position 0,
// velocity 8, radius 16, color 32.
func marshalGPUParticle(g GPUParticle) []byte {
	buf := make([]byte, GPUParticleSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Velocity[0]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.Velocity[1]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Radius))
	binary.LittleEndian.PutUint32(buf[32:36], math.Float32bits(g.Color[0]))
	binary.LittleEndian.PutUint32(buf[36:40], math.Float32bits(g.Color[1]))
	binary.LittleEndian.PutUint32(buf[40:44], math.Float32bits(g.Color[2]))
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.Color[3]))
	return buf
}

// TestGPUParticleLayout verifies the 48-byte std430 stride and that the
// unsafe slice view used for bulk uploads matches the declared field offsets.
func TestGPUParticleLayout(t *testing.T) {
	g := GPUParticle{
		Position: [2]float32{1, 2},
		Velocity: [2]float32{3, 4},
		Radius:   5,
		Color:    [4]float32{0.1, 0.2, 0.3, 1},
	}
	require.Equal(t, 48, GPUParticleSize)

	viewed := common.SliceToBytes([]GPUParticle{g})
	assert.Equal(t, marshalGPUParticle(g), viewed)
}

// TestToGPUReusesStaging verifies ToGPU fills the provided staging slice in
// place when capacity allows, and converts fields faithfully.
func TestToGPUReusesStaging(t *testing.T) {
	src := []Particle{
		{
			Position: common.Vec2{X: 10, Y: 20},
			Velocity: common.Vec2{X: -1, Y: 2},
			Radius:   7,
			Color:    [4]float32{1, 1, 1, 1},
		},
		{
			Position: common.Vec2{X: 30, Y: 40},
			Radius:   9,
		},
	}

	staging := make([]GPUParticle, 0, 8)
	out := ToGPU(staging, src)
	require.Len(t, out, 2)
	assert.Equal(t, [2]float32{10, 20}, out[0].Position)
	assert.Equal(t, [2]float32{-1, 2}, out[0].Velocity)
	assert.Equal(t, float32(7), out[0].Radius)
	assert.Equal(t, float32(9), out[1].Radius)

	again := ToGPU(out, src)
	assert.Same(t, &out[0], &again[0], "staging slice should be reused")
}
