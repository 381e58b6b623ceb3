package particle

import "unsafe"

// GPUParticle is the GPU-aligned representation of a single particle for
// storage buffer upload and wire frames.
// Size: 48 bytes (std430 aligned; the vec4 color forces 16-byte alignment,
// so 12 bytes of padding follow the radius).
type GPUParticle struct {
	Position [2]float32 // offset  0: center in domain space (8 bytes)
	Velocity [2]float32 // offset  8: velocity in domain units/sec (8 bytes)
	Radius   float32    // offset 16: collision/draw radius (4 bytes)
	_        [3]float32 // offset 20: padding to align Color at 32 (12 bytes)
	Color    [4]float32 // offset 32: RGBA tint (16 bytes)
}

// GPUParticleSize is the byte stride of one GPUParticle in a storage buffer.
const GPUParticleSize = int(unsafe.Sizeof(GPUParticle{}))

// ToGPU converts src into GPU-aligned particles, reusing dst to avoid
// per-frame allocations. dst is grown only when its capacity is insufficient.
//
// Parameters:
//   - dst: the staging slice to fill (may be nil)
//   - src: the particles to convert
//
// Returns:
//   - []GPUParticle: the filled staging slice, len(src) elements long
func ToGPU(dst []GPUParticle, src []Particle) []GPUParticle {
	if cap(dst) < len(src) {
		dst = make([]GPUParticle, len(src))
	} else {
		dst = dst[:len(src)]
	}
	for i, p := range src {
		dst[i] = GPUParticle{
			Position: [2]float32{p.Position.X, p.Position.Y},
			Velocity: [2]float32{p.Velocity.X, p.Velocity.Y},
			Radius:   p.Radius,
			Color:    p.Color,
		}
	}
	return dst
}
