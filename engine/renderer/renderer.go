// package renderer draws the published particle snapshot as instanced circles
// through a WebGPU backend. The renderer is a pure consumer: it never mutates
// particle state and holds no reference to a frame past the upload.
package renderer

import (
	"sync"

	"github.com/Carmen-Shannon/bounce-go/common"
	"github.com/Carmen-Shannon/bounce-go/engine/particle"
	"github.com/Carmen-Shannon/bounce-go/engine/renderer/shader"
	"github.com/Carmen-Shannon/bounce-go/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backendType RendererBackendType
	backend     RendererBackend

	// staging is the reusable GPU-layout conversion buffer; grown once to the
	// particle count, then reused every frame to avoid per-frame allocations.
	staging []particle.GPUParticle

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          MSAASampleCount
	pendingClearColor    *[4]float64
	shader               shader.Shader
	domainWidth          float32
	domainHeight         float32
}

// Renderer defines the interface for the particle rendering system.
//
// A frame is two calls on the render context: UploadParticles with the
// generation's snapshot, then RenderFrame to draw it. Upload and draw are
// split so alternate consumers can reuse the uploaded state (e.g. drawing the
// same generation again after a resize without a fresh snapshot).
type Renderer interface {
	// UploadParticles converts the snapshot to the GPU layout and writes it to
	// the instance storage buffer. The input slice is not retained.
	//
	// Parameters:
	//   - particles: the particle snapshot to upload
	//
	// Returns:
	//   - error: error if the GPU upload fails
	UploadParticles(particles []particle.Particle) error

	// RenderFrame draws the most recently uploaded particles as instanced
	// circles and presents the result. A lost or outdated surface is
	// reconfigured and the frame skipped; the returned error is diagnostic,
	// not fatal.
	//
	// Returns:
	//   - error: error if the frame could not be drawn
	RenderFrame() error

	// Resize configures the underlying backend to handle a new surface size.
	// This should be called when re-sizing the window or when the surface size should change.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// SetClearColor sets the background color the frame is cleared to.
	//
	// Parameters:
	//   - r: red component in [0,1]
	//   - g: green component in [0,1]
	//   - b: blue component in [0,1]
	//   - a: alpha component in [0,1]
	SetClearColor(r, g, b, a float64)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	// A call to Resize is required after changing this for the new mode to take effect.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync, Uncapped, or FastVSync)
	SetPresentMode(mode PresentMode)

	// Release frees all GPU resources held by the renderer. The renderer must
	// not be used after Release.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer for the given window with the specified backend type.
// The window provides the platform surface descriptor and initial surface size.
// Panics if the GPU backend cannot be acquired; there is no degraded mode
// without a device.
//
// Parameters:
//   - backendType: the type of rendering backend to use (e.g., WGPU)
//   - win: the window whose surface the renderer draws into
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:           &sync.Mutex{},
		backendType:  backendType,
		shader:       shader.DefaultParticleShader(),
		domainWidth:  particle.DefaultDomainWidth,
		domainHeight: particle.DefaultDomainHeight,
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := common.Coalesce(r.pendingMSAA, MSAA4x)

	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa, r.shader)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	if r.pendingClearColor != nil {
		c := *r.pendingClearColor
		r.backend.SetClearColor(c[0], c[1], c[2], c[3])
	}

	r.backend.SetProjection(r.domainWidth, r.domainHeight)
	r.backend.ConfigureSurface(win.Width(), win.Height())
	return r
}

func (r *renderer) UploadParticles(particles []particle.Particle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.staging = particle.ToGPU(r.staging, particles)
	return r.backend.UploadParticles(r.staging)
}

func (r *renderer) RenderFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.backend.RenderFrame()
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetClearColor(red, green, blue, alpha float64) {
	r.backend.SetClearColor(red, green, blue, alpha)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backend.Release()
}
