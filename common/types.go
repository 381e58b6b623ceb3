// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import "math"

// Vec2 is a 2D vector of float32 components, used for particle positions and
// velocities in domain space.
type Vec2 struct {
	// X is the horizontal component.
	X float32
	// Y is the vertical component (y-up, matching the domain rectangle origin at the bottom-left).
	Y float32
}

// Add returns the component-wise sum of v and o.
//
// Parameters:
//   - o: the vector to add
//
// Returns:
//   - Vec2: v + o
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns the component-wise difference of v and o.
//
// Parameters:
//   - o: the vector to subtract
//
// Returns:
//   - Vec2: v - o
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v with both components multiplied by s.
//
// Parameters:
//   - s: the scalar multiplier
//
// Returns:
//   - Vec2: v * s
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Dot returns the dot product of v and o.
//
// Parameters:
//   - o: the other vector
//
// Returns:
//   - float32: v · o
func (v Vec2) Dot(o Vec2) float32 {
	return v.X*o.X + v.Y*o.Y
}

// LengthSq returns the squared length of v. Prefer this over Length when
// comparing distances, to avoid the square root.
//
// Returns:
//   - float32: |v|²
func (v Vec2) LengthSq() float32 {
	return v.X*v.X + v.Y*v.Y
}

// Length returns the Euclidean length of v.
//
// Returns:
//   - float32: |v|
func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.LengthSq())))
}
