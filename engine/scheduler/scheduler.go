// package scheduler drives the compute/render handoff: two perpetual loops
// coordinated through two condition-guarded completion flags so that the
// producer never runs more than one generation ahead of the consumer and the
// two sides never touch the same slot concurrently. Correctness rests
// entirely on this handshake; the particle payload itself is never locked.
package scheduler

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/bounce-go/engine/particle"
	"github.com/Carmen-Shannon/bounce-go/engine/simulation"
	"github.com/Carmen-Shannon/bounce-go/engine/store"
)

// DefaultStallWarning is the watchdog threshold for diagnosing handshake
// stalls. Warnings are diagnostic only; the wait continues.
const DefaultStallWarning = 5 * time.Second

// ComputeState identifies where the compute loop is in its per-generation
// state machine.
type ComputeState int32

const (
	// ComputeStateWaitingForRenderDone means the compute loop is blocked
	// until the render side finishes consuming the previous generation.
	ComputeStateWaitingForRenderDone ComputeState = iota
	// ComputeStateComputing means the simulation passes are running against
	// the write slot.
	ComputeStateComputing
	// ComputeStateSignaledComputeDone means the generation has been swapped
	// in and its completion flag raised.
	ComputeStateSignaledComputeDone
)

// String returns the state name for logs and stall diagnostics.
func (s ComputeState) String() string {
	switch s {
	case ComputeStateWaitingForRenderDone:
		return "WaitingForRenderDone"
	case ComputeStateComputing:
		return "Computing"
	case ComputeStateSignaledComputeDone:
		return "SignaledComputeDone"
	default:
		return fmt.Sprintf("ComputeState(%d)", int32(s))
	}
}

// RenderState identifies where the render loop is in its per-generation
// state machine.
type RenderState int32

const (
	// RenderStateWaitingForComputeDone means the render loop is blocked
	// until the compute side publishes the next generation.
	RenderStateWaitingForComputeDone RenderState = iota
	// RenderStateRendering means the consumer is drawing the read slot.
	RenderStateRendering
	// RenderStateSignaledRenderDone means consumption finished and its
	// completion flag was raised.
	RenderStateSignaledRenderDone
)

// String returns the state name for logs and stall diagnostics.
func (s RenderState) String() string {
	switch s {
	case RenderStateWaitingForComputeDone:
		return "WaitingForComputeDone"
	case RenderStateRendering:
		return "Rendering"
	case RenderStateSignaledRenderDone:
		return "SignaledRenderDone"
	default:
		return fmt.Sprintf("RenderState(%d)", int32(s))
	}
}

// Frame is the per-generation snapshot handed to the consumer. The particle
// slice aliases the read slot and is only valid for the duration of the
// Consume call; consumers must not retain or mutate it.
type Frame struct {
	// Particles is the published particle array for this generation.
	Particles []particle.Particle
	// Generation is the snapshot's generation number, starting at 1.
	Generation uint64
	// Overlaps is the overlapping-pair count the Stats pass recorded for
	// this generation.
	Overlaps int
}

// Consumer receives one Frame per generation on the render loop.
type Consumer interface {
	// Consume draws or otherwise processes one generation's snapshot.
	// Errors are logged and the loop continues; returning an error never
	// stalls the handshake.
	//
	// Parameters:
	//   - frame: the generation snapshot (valid only during the call)
	//
	// Returns:
	//   - error: error if consumption fails
	Consume(frame Frame) error
}

// ConsumerFunc adapts a function to the Consumer interface.
type ConsumerFunc func(frame Frame) error

// Consume calls f(frame).
func (f ConsumerFunc) Consume(frame Frame) error {
	return f(frame)
}

// doneFlag is one completion flag of the handshake: a generation watermark
// guarded by its own mutex/condition pair. signal raises the watermark and
// wakes waiters; stop wakes waiters permanently so shutdown can never strand
// a blocked participant.
type doneFlag struct {
	mu      sync.Mutex
	cond    *sync.Cond
	gen     uint64 // highest generation marked done
	stopped bool
}

func newDoneFlag() *doneFlag {
	f := &doneFlag{}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// signal marks generation g done and wakes all waiters.
func (f *doneFlag) signal(g uint64) {
	f.mu.Lock()
	if g > f.gen {
		f.gen = g
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}

// stop wakes all waiters and makes every current and future wait return
// false. This is the final wake that shutdown requires: merely setting a
// flag would strand a participant blocked in Wait.
func (f *doneFlag) stop() {
	f.mu.Lock()
	f.stopped = true
	f.mu.Unlock()
	f.cond.Broadcast()
}

// wait blocks until the watermark reaches g or the flag is stopped. When
// warnAfter is positive, a timer re-wakes the wait so stalls longer than the
// threshold invoke onStall (once per threshold elapsed) and the wait
// continues — a stall is diagnostic, never fatal.
//
// Returns false if the flag was stopped, true once the watermark covers g.
func (f *doneFlag) wait(g uint64, warnAfter time.Duration, onStall func(elapsed time.Duration)) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	var timer *time.Timer
	if warnAfter > 0 {
		timer = time.AfterFunc(warnAfter, f.cond.Broadcast)
		defer timer.Stop()
	}

	start := time.Now()
	var lastWarn time.Duration
	for f.gen < g && !f.stopped {
		f.cond.Wait()

		if warnAfter > 0 && f.gen < g && !f.stopped {
			if elapsed := time.Since(start); elapsed-lastWarn >= warnAfter {
				lastWarn = elapsed
				if onStall != nil {
					onStall(elapsed)
				}
				timer.Reset(warnAfter)
			}
		}
	}
	return !f.stopped
}

// scheduler implements the Scheduler interface.
// Coordinates the compute and render goroutines over the shared store.
type scheduler struct {
	store    store.Store
	stage    simulation.Stage
	consumer Consumer

	// computeDone and renderDone are the two flags of the handshake. Initial
	// condition: renderDone at 0 means the initial snapshot counts as
	// consumed, so compute may start generation 1 immediately.
	computeDone *doneFlag
	renderDone  *doneFlag

	computeState atomic.Int32
	renderState  atomic.Int32
	computeGen   atomic.Uint64 // last generation compute signaled done
	renderGen    atomic.Uint64 // last generation render signaled done

	stallWarning time.Duration

	started bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once
}

// Scheduler owns the two perpetual loops of the pipeline. Compute repeatedly
// produces generations into the store's write slot and Render consumes each
// published generation exactly once, in order, with at most one generation of
// slack between them.
type Scheduler interface {
	// Start launches the compute and render goroutines. Calling Start twice
	// is a programming error and panics.
	Start()

	// RequestStop signals both loops to stop and wakes any blocked
	// handshake wait. Safe to call multiple times; subsequent calls are
	// no-ops.
	RequestStop()

	// AwaitStopped blocks until both loops have exited. Returns immediately
	// if Start was never called.
	AwaitStopped()

	// ComputeState returns the compute loop's current state-machine state.
	//
	// Returns:
	//   - ComputeState: the current compute state
	ComputeState() ComputeState

	// RenderState returns the render loop's current state-machine state.
	//
	// Returns:
	//   - RenderState: the current render state
	RenderState() RenderState

	// ComputeGeneration returns the last generation the compute loop
	// signaled done.
	//
	// Returns:
	//   - uint64: the compute-side generation watermark
	ComputeGeneration() uint64

	// RenderGeneration returns the last generation the render loop signaled
	// done. The bounded-slack guarantee is
	// ComputeGeneration() - RenderGeneration() ∈ {0, 1}.
	//
	// Returns:
	//   - uint64: the render-side generation watermark
	RenderGeneration() uint64
}

// Ensure scheduler implements Scheduler interface.
var _ Scheduler = &scheduler{}

// NewScheduler creates a Scheduler over the given store, stage, and consumer.
// All three are required and NewScheduler panics if any is nil.
//
// Parameters:
//   - st: the two-slot state store both loops hand off through (must not be nil)
//   - stg: the simulation stage run by the compute loop (must not be nil)
//   - consumer: the render-side consumer of published generations (must not be nil)
//   - options: functional options for scheduler configuration
//
// Returns:
//   - Scheduler: the newly created scheduler
func NewScheduler(st store.Store, stg simulation.Stage, consumer Consumer, options ...SchedulerBuilderOption) Scheduler {
	if st == nil {
		panic("scheduler: NewScheduler requires a non-nil Store")
	}
	if stg == nil {
		panic("scheduler: NewScheduler requires a non-nil Stage")
	}
	if consumer == nil {
		panic("scheduler: NewScheduler requires a non-nil Consumer")
	}

	s := &scheduler{
		store:        st,
		stage:        stg,
		consumer:     consumer,
		computeDone:  newDoneFlag(),
		renderDone:   newDoneFlag(),
		stallWarning: DefaultStallWarning,
		quitChannel:  make(chan struct{}),
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

func (s *scheduler) Start() {
	if s.started {
		panic("scheduler: Start called twice")
	}
	s.started = true

	s.wg.Add(2)
	go s.handleCompute()
	go s.handleRender()
}

func (s *scheduler) RequestStop() {
	s.quitOnce.Do(func() {
		close(s.quitChannel)
		s.computeDone.stop()
		s.renderDone.stop()
	})
}

func (s *scheduler) AwaitStopped() {
	s.wg.Wait()
}

func (s *scheduler) ComputeState() ComputeState {
	return ComputeState(s.computeState.Load())
}

func (s *scheduler) RenderState() RenderState {
	return RenderState(s.renderState.Load())
}

func (s *scheduler) ComputeGeneration() uint64 {
	return s.computeGen.Load()
}

func (s *scheduler) RenderGeneration() uint64 {
	return s.renderGen.Load()
}

// handleCompute runs the compute loop in its own goroutine. Per generation g:
// wait for render done on g-1, run the simulation passes against the write
// slot, swap the labels, then signal compute done for g. The swap happens
// strictly before the done signal so the render side can never wake to an
// unpublished slot. Recovers from panics to request an orderly stop instead
// of crashing the process alone.
func (s *scheduler) handleCompute() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scheduler] compute goroutine recovered from panic: %v", r)
			s.RequestStop()
		}
	}()

	lastTick := time.Now()

	for gen := uint64(1); ; gen++ {
		select {
		case <-s.quitChannel:
			return
		default:
		}

		s.computeState.Store(int32(ComputeStateWaitingForRenderDone))
		ok := s.renderDone.wait(gen-1, s.stallWarning, func(elapsed time.Duration) {
			log.Printf("[Scheduler] compute stalled for %v in %s (generation %d)",
				elapsed.Round(time.Millisecond), ComputeStateWaitingForRenderDone, gen)
		})
		if !ok {
			return
		}

		s.computeState.Store(int32(ComputeStateComputing))
		now := time.Now()
		dt := float32(now.Sub(lastTick).Seconds())
		lastTick = now

		lease := s.store.AcquireWrite()
		overlaps := s.stage.Step(lease.Particles(), dt)
		lease.SetOverlaps(overlaps)
		lease.Release()
		s.store.Swap()

		s.computeState.Store(int32(ComputeStateSignaledComputeDone))
		s.computeGen.Store(gen)
		s.computeDone.signal(gen)
	}
}

// handleRender runs the render loop in its own goroutine. Per generation g:
// wait for compute done on g, consume the read slot, then signal render done
// for g. Consumer errors are logged and the loop continues; the render-done
// signal is raised regardless so the compute side cannot deadlock on a
// failing consumer. Recovers from panics to request an orderly stop.
func (s *scheduler) handleRender() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Scheduler] render goroutine recovered from panic: %v", r)
			s.RequestStop()
		}
	}()

	for gen := uint64(1); ; gen++ {
		select {
		case <-s.quitChannel:
			return
		default:
		}

		s.renderState.Store(int32(RenderStateWaitingForComputeDone))
		ok := s.computeDone.wait(gen, s.stallWarning, func(elapsed time.Duration) {
			log.Printf("[Scheduler] render stalled for %v in %s (generation %d)",
				elapsed.Round(time.Millisecond), RenderStateWaitingForComputeDone, gen)
		})
		if !ok {
			return
		}

		s.renderState.Store(int32(RenderStateRendering))
		lease := s.store.AcquireRead()
		if lease.Generation() != gen {
			panic(fmt.Sprintf("scheduler: read slot holds generation %d, expected %d", lease.Generation(), gen))
		}

		frame := Frame{
			Particles:  lease.Particles(),
			Generation: gen,
			Overlaps:   lease.Overlaps(),
		}
		if err := s.consumer.Consume(frame); err != nil {
			log.Printf("[Scheduler] consumer error on generation %d: %v", gen, err)
		}
		lease.Release()

		s.renderState.Store(int32(RenderStateSignaledRenderDone))
		s.renderGen.Store(gen)
		s.renderDone.signal(gen)
	}
}
