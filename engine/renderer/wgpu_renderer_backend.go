package renderer

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/bounce-go/common"
	"github.com/Carmen-Shannon/bounce-go/engine/particle"
	"github.com/Carmen-Shannon/bounce-go/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// uniformBufferSize is one column-major 4×4 projection matrix.
const uniformBufferSize = 16 * 4

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTextureView      *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode // defaults to PresentModeFifo (VSync)
	sampleCount MSAASampleCount  // MSAA sample count for the main render pass
	clearColor  wgpu.Color

	// Last configured surface size, used to reconfigure after a lost or
	// outdated surface.
	surfaceWidth  int
	surfaceHeight int

	// Fixed particle pipeline state. The pipeline is created on the first
	// ConfigureSurface (once the surface format is known) and reused for the
	// renderer's lifetime.
	particleShader  shader.Shader
	pipeline        *wgpu.RenderPipeline
	bindGroupLayout *wgpu.BindGroupLayout
	bindGroup       *wgpu.BindGroup
	uniformBuffer   *wgpu.Buffer
	particleBuffer  *wgpu.Buffer

	// particleCapacity is the instance capacity of particleBuffer in
	// particles; instanceCount is how many are drawn this frame.
	particleCapacity int
	instanceCount    uint32

	projection [16]float32
}

type wgpuRendererBackend interface {
	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Instance() *wgpu.Instance
	Adapter() *wgpu.Adapter
	Surface() *wgpu.Surface

	// ConfigureSurface is a wrapper for boilerplate logic required when calling ConfigureSurface on a surface.
	// This is required when the surface size changes, such as when the window is resized.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode which controls how frames are delivered to the display.
	//
	// Parameters:
	//   - mode: the PresentMode to use (VSync, Uncapped, or FastVSync)
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the color the frame is cleared to before drawing.
	//
	// Parameters:
	//   - r: red component in [0,1]
	//   - g: green component in [0,1]
	//   - b: blue component in [0,1]
	//   - a: alpha component in [0,1]
	SetClearColor(r, g, b, a float64)

	// SetProjection rebuilds the orthographic projection uniform mapping the
	// domain rectangle [0,width]×[0,height] onto the surface.
	//
	// Parameters:
	//   - width: domain width in domain units
	//   - height: domain height in domain units
	SetProjection(width, height float32)

	// UploadParticles writes the GPU-layout particle array into the instance
	// storage buffer, growing the buffer (and rebuilding the bind group) if
	// the array no longer fits.
	//
	// Parameters:
	//   - particles: the GPU-layout particles to upload
	//
	// Returns:
	//   - error: error if buffer creation fails
	UploadParticles(particles []particle.GPUParticle) error

	// RenderFrame acquires the next surface texture, draws all uploaded
	// particles as instanced circles in a single pass, submits, and presents.
	// A failed surface acquisition reconfigures the surface and skips the
	// frame.
	//
	// Returns:
	//   - error: error if the frame could not be drawn
	RenderFrame() error

	// Release frees all GPU resources held by the backend.
	Release()
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount, particleShader shader.Shader) wgpuRendererBackend {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:             &sync.Mutex{},
		instance:       wgpu.CreateInstance(nil),
		presentMode:    wgpu.PresentModeFifo,
		sampleCount:    sampleCount,
		particleShader: particleShader,
		clearColor:     wgpu.Color{R: 0.05, G: 0.05, B: 0.08, A: 1.0},
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configureSurfaceLocked(width, height)
}

func (b *wgpuRendererBackendImpl) configureSurfaceLocked(width, height int) {
	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	b.surfaceWidth = width
	b.surfaceHeight = height

	count := uint32(b.sampleCount)
	msaaEnabled := count > 1

	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if msaaEnabled {
		// Create the MSAA texture that the render pass draws into; the resolved
		// result is written to the swapchain view as the ResolveTarget.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// Build the cached render pass descriptor for the main render target.
	// When MSAA is enabled, View is the MSAA texture and ResolveTarget is
	// set per-frame to the swapchain view. When disabled, View is set
	// per-frame to the swapchain view and ResolveTarget remains nil.
	// Particles are alpha-blended circles drawn in array order, so no depth
	// attachment is needed.
	storeOp := wgpu.StoreOpStore
	if msaaEnabled {
		storeOp = wgpu.StoreOpDiscard // Don't store MSAA data, just resolve
	}
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          b.msaaTextureView, // nil when MSAA is off; set in RenderFrame
				ResolveTarget: nil,               // set per-frame when MSAA is on
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       storeOp,
				ClearValue:    b.clearColor,
			},
		},
	}

	if b.pipeline == nil {
		b.createPipelineLocked()
	}
}

// createPipelineLocked builds the fixed instanced-circle pipeline: one shader
// module, one bind group layout (projection uniform + particle storage), and
// one alpha-blended render pipeline with no vertex buffers — quad corners are
// generated from the vertex index in the shader.
func (b *wgpuRendererBackendImpl) createPipelineLocked() {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: b.particleShader.Name(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: b.particleShader.Source(),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("failed to compile particle shader: %v", err))
	}

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Particle Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: uniformBufferSize,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeReadOnlyStorage,
					MinBindingSize: uint64(particle.GPUParticleSize),
				},
			},
		},
	})
	if err != nil {
		panic(err)
	}
	b.bindGroupLayout = layout

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Particle Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		panic(err)
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Particle Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format: *b.surfaceFormat,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
						Alpha: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
					},
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		panic(err)
	}
	b.pipeline = created

	uniform, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Projection Uniform Buffer",
		Size:  uniformBufferSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		panic(err)
	}
	b.uniformBuffer = uniform
	b.queue.WriteBuffer(b.uniformBuffer, 0, common.SliceToBytes(b.projection[:]))
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeFastVSync:
		b.presentMode = wgpu.PresentModeMailbox
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}

	// An already-configured surface must be reconfigured for the new mode to
	// take effect.
	if b.surfaceWidth > 0 && b.surfaceHeight > 0 {
		b.configureSurfaceLocked(b.surfaceWidth, b.surfaceHeight)
	}
}

func (b *wgpuRendererBackendImpl) SetClearColor(r, g, bl, a float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearColor = wgpu.Color{R: r, G: g, B: bl, A: a}
	if b.renderPassDescriptor != nil {
		b.renderPassDescriptor.ColorAttachments[0].ClearValue = b.clearColor
	}
}

func (b *wgpuRendererBackendImpl) SetProjection(width, height float32) {
	b.mu.Lock()
	defer b.mu.Unlock()

	common.Ortho2D(b.projection[:], width, height)
	if b.uniformBuffer != nil {
		b.queue.WriteBuffer(b.uniformBuffer, 0, common.SliceToBytes(b.projection[:]))
	}
}

func (b *wgpuRendererBackendImpl) UploadParticles(particles []particle.GPUParticle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(particles) == 0 {
		b.instanceCount = 0
		return nil
	}

	if b.particleBuffer == nil || b.particleCapacity < len(particles) {
		if err := b.growParticleBufferLocked(len(particles)); err != nil {
			return err
		}
	}

	b.queue.WriteBuffer(b.particleBuffer, 0, common.SliceToBytes(particles))
	b.instanceCount = uint32(len(particles))
	return nil
}

// growParticleBufferLocked replaces the instance storage buffer with one
// sized for count particles and rebuilds the bind group around it. The
// particle count is fixed at startup, so this normally runs exactly once.
func (b *wgpuRendererBackendImpl) growParticleBufferLocked(count int) error {
	if b.particleBuffer != nil {
		b.particleBuffer.Release()
		b.particleBuffer = nil
	}
	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}

	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Particle Storage Buffer",
		Size:  uint64(count * particle.GPUParticleSize),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create particle storage buffer: %w", err)
	}
	b.particleBuffer = buf
	b.particleCapacity = count

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Particle Bind Group",
		Layout: b.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{
				Binding: 0,
				Buffer:  b.uniformBuffer,
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
			{
				Binding: 1,
				Buffer:  b.particleBuffer,
				Offset:  0,
				Size:    wgpu.WholeSize,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create particle bind group: %w", err)
	}
	b.bindGroup = bindGroup

	return nil
}

func (b *wgpuRendererBackendImpl) RenderFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pipeline == nil || b.bindGroup == nil {
		return nil
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		// Lost or outdated surface (resize, minimize, driver reset):
		// reconfigure and skip this frame; the next generation draws normally.
		b.configureSurfaceLocked(b.surfaceWidth, b.surfaceHeight)
		return fmt.Errorf("surface texture unavailable, reconfigured: %w", err)
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return err
	}

	// When MSAA is enabled, the MSAA texture is the color attachment View and
	// the swapchain view is the ResolveTarget. When MSAA is off, the swapchain
	// view is the color attachment View directly and ResolveTarget is nil.
	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}

	pass := encoder.BeginRenderPass(b.renderPassDescriptor)
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.bindGroup, nil)
	pass.Draw(6, b.instanceCount, 0, 0)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		view.Release()
		surfaceTexture.Release()
		return err
	}

	b.queue.Submit(commandBuffer)
	b.surface.Present()

	commandBuffer.Release()
	encoder.Release()
	view.Release()
	surfaceTexture.Release()

	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bindGroup != nil {
		b.bindGroup.Release()
		b.bindGroup = nil
	}
	if b.particleBuffer != nil {
		b.particleBuffer.Release()
		b.particleBuffer = nil
	}
	if b.uniformBuffer != nil {
		b.uniformBuffer.Release()
		b.uniformBuffer = nil
	}
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Instance() *wgpu.Instance {
	return b.instance
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) Surface() *wgpu.Surface {
	return b.surface
}
