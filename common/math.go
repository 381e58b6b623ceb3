package common

import "unsafe"

// Identity resets a 4x4 matrix (flat slice) to the identity matrix.
// The matrix is stored in column-major order.
//
// Parameters:
//   - m: destination slice (must be at least 16 elements)
func Identity(m []float32) {
	for i := range m {
		m[i] = 0
	}
	m[0], m[5], m[10], m[15] = 1, 1, 1, 1
}

// Ortho2D builds an orthographic projection matrix mapping the domain
// rectangle [0,width]×[0,height] (y-up) onto WebGPU clip space. X and Y land
// in [-1,1]; Z is fixed at 0.5, inside the [0,1] depth range.
// The matrix is stored in column-major order.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - width: domain width (must be > 0)
//   - height: domain height (must be > 0)
func Ortho2D(out []float32, width, height float32) {
	Identity(out)
	out[0] = 2.0 / width
	out[5] = 2.0 / height
	out[10] = 0
	out[12] = -1
	out[13] = -1
	out[14] = 0.5
}

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}
