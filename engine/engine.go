package engine

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/bounce-go/engine/particle"
	"github.com/Carmen-Shannon/bounce-go/engine/profiler"
	"github.com/Carmen-Shannon/bounce-go/engine/renderer"
	"github.com/Carmen-Shannon/bounce-go/engine/scheduler"
	"github.com/Carmen-Shannon/bounce-go/engine/simulation"
	"github.com/Carmen-Shannon/bounce-go/engine/store"
	"github.com/Carmen-Shannon/bounce-go/engine/window"
)

// engine implements the Engine interface.
// Wires the store, simulation stage, scheduler, and consumers together and
// owns their shared lifecycle.
type engine struct {
	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window   window.Window
	renderer renderer.Renderer

	particleStore   store.Store
	simulationStage simulation.Stage
	sched           scheduler.Scheduler

	// consumers are additional frame consumers invoked after the renderer on
	// the render loop (websocket stream, recorders, ...).
	consumers     []scheduler.Consumer
	frameCallback func(frame scheduler.Frame)

	profiler         *profiler.Profiler
	profilingEnabled bool

	stallWarning     time.Duration
	initialParticles []particle.Particle

	// titleStats drives the live readout in the window title bar, refreshed
	// from the message pump so GLFW calls stay on the main thread.
	titleStats       bool
	titlePrefix      string
	lastTitleUpdate  time.Time
	latestGeneration atomic.Uint64
	latestCount      atomic.Int64
	latestOverlaps   atomic.Int64
}

// Engine is the main entry point. It assembles the double-buffered particle
// store, the simulation stage, and the compute/render scheduler, attaches the
// configured consumers, and runs the whole pipeline until quit.
type Engine interface {
	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Store returns the double-buffered particle store.
	//
	// Returns:
	//   - store.Store: the store instance
	Store() store.Store

	// Stage returns the simulation stage advancing the particles.
	//
	// Returns:
	//   - simulation.Stage: the stage instance
	Stage() simulation.Stage

	// Scheduler returns the compute/render scheduler.
	//
	// Returns:
	//   - scheduler.Scheduler: the scheduler instance
	Scheduler() scheduler.Scheduler

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetFrameCallback registers a function called once per published
	// generation on the render loop, after the renderer and any extra
	// consumers. The frame is valid only during the call.
	//
	// Parameters:
	//   - callback: function receiving each generation's frame
	SetFrameCallback(callback func(frame scheduler.Frame))

	// Run starts the scheduler and blocks until quit. With a window attached
	// it pumps platform messages on the calling goroutine; headless it blocks
	// until Quit is called.
	Run()

	// Quit stops the scheduler and closes the window if one is attached.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// Ensure engine implements Engine interface.
var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
// Any collaborator not supplied is built with defaults: a random particle
// spawn, a parallel simulation stage, and a store seeded from the spawn.
// The scheduler is always constructed here so the handoff wiring cannot be
// misassembled by callers.
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		quitChannel:      make(chan struct{}),
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		titleStats:       true,
		titlePrefix:      "bounce-go",
	}

	for _, opt := range options {
		opt(e)
	}

	if e.particleStore == nil {
		if e.initialParticles == nil {
			e.initialParticles = particle.Spawn()
		}
		e.particleStore = store.NewStore(e.initialParticles)
	}
	if e.simulationStage == nil {
		e.simulationStage = simulation.NewStage()
	}

	var schedulerOptions []scheduler.SchedulerBuilderOption
	if e.stallWarning > 0 {
		schedulerOptions = append(schedulerOptions, scheduler.WithStallWarning(e.stallWarning))
	}
	e.sched = scheduler.NewScheduler(e.particleStore, e.simulationStage, scheduler.ConsumerFunc(e.consumeFrame), schedulerOptions...)

	if e.window != nil {
		e.window.SetResizeCallback(func(width, height int) {
			if e.renderer != nil {
				e.renderer.Resize(width, height)
			}
		})
		e.window.SetUpdateCallback(e.pumpUpdate)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Store() store.Store {
	return e.particleStore
}

func (e *engine) Stage() simulation.Stage {
	return e.simulationStage
}

func (e *engine) Scheduler() scheduler.Scheduler {
	return e.sched
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetFrameCallback registers the per-generation callback. Set it before Run;
// the render loop reads it without locking.
func (e *engine) SetFrameCallback(callback func(frame scheduler.Frame)) {
	e.frameCallback = callback
}

func (e *engine) Run() {
	e.sched.Start()
	log.Println("[Engine] pipeline started")

	if e.window != nil {
		// The message pump owns the main thread until the window closes.
		e.window.ProcessMessages()
		e.Quit()
		// Idempotent: releases platform resources even when the pump exited
		// through Escape or Quit rather than the window close button.
		if err := e.window.Close(); err != nil {
			log.Printf("[Engine] window close: %v", err)
		}
	} else {
		<-e.quitChannel
	}

	e.sched.AwaitStopped()
	if e.renderer != nil {
		e.renderer.Release()
	}
	log.Println("[Engine] pipeline stopped")
}

// Quit stops the scheduler and asks the window to close. The window itself is
// torn down on the message pump's thread: pumpUpdate notices the quit signal
// and calls Close there, since GLFW requires window destruction on the thread
// that owns it.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.quitOnce.Do(func() {
		e.sched.RequestStop()
		close(e.quitChannel)
	})
}

// consumeFrame is the scheduler's render consumer: it drives the GPU renderer
// first, then fans the frame out to the extra consumers and the callback.
// A failed present is logged and dropped; consumer errors never stall the
// handshake.
func (e *engine) consumeFrame(frame scheduler.Frame) error {
	if e.renderer != nil {
		if err := e.renderer.UploadParticles(frame.Particles); err != nil {
			return fmt.Errorf("engine: upload generation %d: %w", frame.Generation, err)
		}
		if err := e.renderer.RenderFrame(); err != nil {
			log.Printf("[Engine] dropped frame for generation %d: %v", frame.Generation, err)
		}
	}

	for _, c := range e.consumers {
		if err := c.Consume(frame); err != nil {
			log.Printf("[Engine] consumer error on generation %d: %v", frame.Generation, err)
		}
	}

	if e.frameCallback != nil {
		e.frameCallback(frame)
	}

	e.latestGeneration.Store(frame.Generation)
	e.latestCount.Store(int64(len(frame.Particles)))
	e.latestOverlaps.Store(int64(frame.Overlaps))

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.ObserveGeneration(frame.Generation)
		e.profiler.Tick()
	}
	return nil
}

// pumpUpdate runs once per message pump iteration on the pump's thread. It
// closes the window when quit has been requested, so platform teardown always
// happens on the owning thread, and otherwise refreshes the title stats.
func (e *engine) pumpUpdate() {
	select {
	case <-e.quitChannel:
		if err := e.window.Close(); err != nil {
			log.Printf("[Engine] window close: %v", err)
		}
		return
	default:
	}
	if e.titleStats {
		e.refreshTitle()
	}
}

// refreshTitle updates the title-bar stats readout. Runs on the message pump
// (main thread) and throttles itself to roughly four updates per second.
func (e *engine) refreshTitle() {
	now := time.Now()
	if now.Sub(e.lastTitleUpdate) < 250*time.Millisecond {
		return
	}
	e.lastTitleUpdate = now
	e.window.SetTitle(fmt.Sprintf("%s | gen %d | %d particles | %d overlaps",
		e.titlePrefix, e.latestGeneration.Load(), e.latestCount.Load(), e.latestOverlaps.Load()))
}
