package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/bounce-go/engine/particle"
	"github.com/Carmen-Shannon/bounce-go/engine/scheduler"
	"github.com/Carmen-Shannon/bounce-go/engine/simulation"
	"github.com/Carmen-Shannon/bounce-go/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeWindow is a pump-only Window for facade tests: no GLFW, no surface.
// stop simulates the pump ending on its own (Escape or the close button)
// without Close having been called.
type fakeWindow struct {
	mu         sync.Mutex
	running    bool
	closeCalls int
	title      string
	onUpdate   func()
}

var _ window.Window = &fakeWindow{}

func newFakeWindow() *fakeWindow { return &fakeWindow{running: true} }

func (f *fakeWindow) SetUpdateCallback(callback func())          { f.onUpdate = callback }
func (f *fakeWindow) SetResizeCallback(func(int, int))           {}
func (f *fakeWindow) SetKeyDownCallback(func(uint32))            {}
func (f *fakeWindow) SetKeyUpCallback(func(uint32))              {}
func (f *fakeWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (f *fakeWindow) Width() int                                 { return 800 }
func (f *fakeWindow) Height() int                                { return 600 }

func (f *fakeWindow) SetTitle(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title = title
}

func (f *fakeWindow) IsRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *fakeWindow) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
	f.closeCalls++
	return nil
}

func (f *fakeWindow) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}

func (f *fakeWindow) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.running = false
}

func (f *fakeWindow) ProcessMessages() {
	for f.IsRunning() {
		if f.onUpdate != nil {
			f.onUpdate()
		}
		time.Sleep(time.Millisecond)
	}
}

func newHeadlessEngine(t *testing.T, options ...EngineBuilderOption) Engine {
	t.Helper()
	base := []EngineBuilderOption{
		WithParticles(particle.Spawn(particle.WithCount(16), particle.WithSeed(1))),
		WithStage(simulation.NewStage(simulation.WithWorkers(1))),
	}
	return NewEngine(append(base, options...)...)
}

// TestHeadlessRunPublishesGenerations verifies the full assembled pipeline:
// a headless engine publishes monotonically increasing generations to the
// frame callback, and Run returns after Quit.
func TestHeadlessRunPublishesGenerations(t *testing.T) {
	e := newHeadlessEngine(t)

	seen := make(chan uint64, 256)
	e.SetFrameCallback(func(frame scheduler.Frame) {
		select {
		case seen <- frame.Generation:
		default:
		}
	})

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	var last uint64
	deadline := time.After(5 * time.Second)
	for last < 5 {
		select {
		case generation := <-seen:
			require.Greater(t, generation, last, "generations must strictly increase")
			last = generation
		case <-deadline:
			t.Fatalf("pipeline stalled at generation %d", last)
		}
	}

	e.Quit()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
}

// TestQuitIsIdempotent verifies that Quit can be called repeatedly, before
// and after Run returns, without panicking or blocking.
func TestQuitIsIdempotent(t *testing.T) {
	e := newHeadlessEngine(t)

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	e.Quit()
	e.Quit()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}

	e.Quit()
}

// TestAccessorsExposeCollaborators verifies that defaulted collaborators are
// constructed and reachable through the accessors.
func TestAccessorsExposeCollaborators(t *testing.T) {
	e := newHeadlessEngine(t)

	assert.Nil(t, e.Window())
	assert.NotNil(t, e.Store())
	assert.NotNil(t, e.Stage())
	assert.NotNil(t, e.Scheduler())
}

// TestQuitClosesWindowFromPumpThread verifies that a Quit issued off the pump
// thread still ends the message pump, closes the window on the pump's own
// thread, and returns from Run with the window released.
func TestQuitClosesWindowFromPumpThread(t *testing.T) {
	f := newFakeWindow()
	e := NewEngine(
		WithWindow(f),
		WithParticles(particle.Spawn(particle.WithCount(4), particle.WithSeed(1))),
		WithStage(simulation.NewStage(simulation.WithWorkers(1))),
	)

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	e.Quit()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
	assert.False(t, f.IsRunning())
	assert.GreaterOrEqual(t, f.closeCount(), 1, "window was never closed")
}

// TestWindowReleasedWhenPumpExitsOnItsOwn covers the Escape/close-button
// path: the pump stops without Close having run, and Run must still close
// the window afterwards so platform resources are released on every path.
func TestWindowReleasedWhenPumpExitsOnItsOwn(t *testing.T) {
	f := newFakeWindow()
	e := NewEngine(
		WithWindow(f),
		WithParticles(particle.Spawn(particle.WithCount(4), particle.WithSeed(1))),
		WithStage(simulation.NewStage(simulation.WithWorkers(1))),
	)

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	f.stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after the pump exited")
	}
	assert.GreaterOrEqual(t, f.closeCount(), 1, "window was never closed")
}

// TestExtraConsumersReceiveFrames verifies that consumers registered with
// WithConsumer are invoked on each generation and that a failing consumer
// does not stop the pipeline.
func TestExtraConsumersReceiveFrames(t *testing.T) {
	received := make(chan scheduler.Frame, 64)
	failing := scheduler.ConsumerFunc(func(frame scheduler.Frame) error {
		return assert.AnError
	})
	recording := scheduler.ConsumerFunc(func(frame scheduler.Frame) error {
		select {
		case received <- frame:
		default:
		}
		return nil
	})

	e := newHeadlessEngine(t, WithConsumer(failing), WithConsumer(recording))

	done := make(chan struct{})
	go func() {
		e.Run()
		close(done)
	}()

	select {
	case frame := <-received:
		assert.GreaterOrEqual(t, frame.Generation, uint64(1))
		assert.Len(t, frame.Particles, 16)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer never received a frame")
	}

	e.Quit()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Quit")
	}
}
