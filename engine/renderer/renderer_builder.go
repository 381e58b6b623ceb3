package renderer

import (
	"github.com/Carmen-Shannon/bounce-go/engine/renderer/shader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync, Uncapped, or FastVSync)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingPresentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count for the renderer.
// When not specified, the default is MSAA4x. Use MSAAOff to disable MSAA entirely.
// Higher values are adapter-dependent and may not be supported by all hardware.
//
// Parameters:
//   - count: the MSAASampleCount to use (MSAAOff, MSAA4x, or MSAA8x)
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingMSAA = count
	}
}

// WithClearColor sets the background color frames are cleared to before the
// particles are drawn. Defaults to a dark grey.
//
// Parameters:
//   - red: red component in [0,1]
//   - green: green component in [0,1]
//   - blue: blue component in [0,1]
//   - alpha: alpha component in [0,1]
//
// Returns:
//   - RendererBuilderOption: a function that applies the clear color option to a renderer
func WithClearColor(red, green, blue, alpha float64) RendererBuilderOption {
	return func(r *renderer) {
		r.pendingClearColor = &[4]float64{red, green, blue, alpha}
	}
}

// WithShader replaces the embedded particle shader. The custom shader must
// declare the same two group-0 bindings as the default: a uniform projection
// matrix at binding 0 and a read-only particle storage array at binding 1.
//
// Parameters:
//   - s: the custom shader to render particles with
//
// Returns:
//   - RendererBuilderOption: a function that applies the shader option to a renderer
func WithShader(s shader.Shader) RendererBuilderOption {
	return func(r *renderer) {
		if s != nil {
			r.shader = s
		}
	}
}

// WithDomain sets the domain rectangle the projection maps onto the surface.
// Must match the simulation stage's domain so particle coordinates land where
// the physics put them.
//
// Parameters:
//   - width: domain width (must be > 0)
//   - height: domain height (must be > 0)
//
// Returns:
//   - RendererBuilderOption: a function that applies the domain option to a renderer
func WithDomain(width, height float32) RendererBuilderOption {
	return func(r *renderer) {
		if width > 0 {
			r.domainWidth = width
		}
		if height > 0 {
			r.domainHeight = height
		}
	}
}

// WithForceSoftwareRenderer forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe). Useful for running the demo on headless CI boxes.
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - RendererBuilderOption: a function that applies the force software renderer option to a renderer
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}
