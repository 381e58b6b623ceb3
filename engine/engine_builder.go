package engine

import (
	"time"

	"github.com/Carmen-Shannon/bounce-go/engine/particle"
	"github.com/Carmen-Shannon/bounce-go/engine/renderer"
	"github.com/Carmen-Shannon/bounce-go/engine/scheduler"
	"github.com/Carmen-Shannon/bounce-go/engine/simulation"
	"github.com/Carmen-Shannon/bounce-go/engine/store"
	"github.com/Carmen-Shannon/bounce-go/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
// Use the With* functions to create options that are applied directly to the engine instance.
type EngineBuilderOption func(*engine)

// WithWindow sets a pre-configured window for the engine to pump messages on.
// Without a window the engine runs headless.
//
// Parameters:
//   - w: a pre-configured Window instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets a pre-configured renderer. The engine drives it on the
// render loop: upload, then present, once per published generation.
//
// Parameters:
//   - r: a pre-configured Renderer instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithParticles sets the initial particle population. Ignored when a store is
// supplied directly via WithStore.
//
// Parameters:
//   - particles: the initial particle slice
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithParticles(particles []particle.Particle) EngineBuilderOption {
	return func(e *engine) {
		e.initialParticles = particles
	}
}

// WithStage sets a pre-configured simulation stage.
//
// Parameters:
//   - s: a pre-configured Stage instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStage(s simulation.Stage) EngineBuilderOption {
	return func(e *engine) {
		e.simulationStage = s
	}
}

// WithStore sets a pre-configured particle store.
//
// Parameters:
//   - s: a pre-configured Store instance
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStore(s store.Store) EngineBuilderOption {
	return func(e *engine) {
		e.particleStore = s
	}
}

// WithConsumer attaches an additional frame consumer invoked after the
// renderer each generation. May be passed multiple times; consumers run in
// registration order.
//
// Parameters:
//   - c: the consumer to attach
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithConsumer(c scheduler.Consumer) EngineBuilderOption {
	return func(e *engine) {
		if c != nil {
			e.consumers = append(e.consumers, c)
		}
	}
}

// WithProfiling enables or disables performance profiling output.
//
// Parameters:
//   - enabled: if true, enables performance profiling
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithStallWarning sets the scheduler's watchdog threshold for handshake
// waits. Values <= 0 keep the scheduler default.
//
// Parameters:
//   - d: the stall warning threshold
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithStallWarning(d time.Duration) EngineBuilderOption {
	return func(e *engine) {
		if d > 0 {
			e.stallWarning = d
		}
	}
}

// WithTitleStats enables or disables the live generation/particle readout in
// the window title bar. Has no effect when running headless.
//
// Parameters:
//   - enabled: if true, the title bar shows live stats
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTitleStats(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.titleStats = enabled
	}
}
